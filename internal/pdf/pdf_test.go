package pdf

import (
	"errors"
	"testing"

	"github.com/ledgerlens/ledgerlens/internal/fault"
)

func TestIsPasswordError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("encrypted PDF: invalid password"), true},
		{errors.New("pdfcpu: please provide the correct password"), true},
		{errors.New("this file is Encrypted"), true},
		{errors.New("malformed xref table"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := IsPasswordError(c.err); got != c.want {
			t.Errorf("IsPasswordError(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestPasswordFaultFlag(t *testing.T) {
	err := passwordFault(errors.New("encrypted PDF: invalid password"))
	if !fault.IsKind(err, fault.KindInputRejected) {
		t.Fatalf("kind = %v, want input_rejected", fault.KindOf(err))
	}
	var fe *fault.Error
	if !errors.As(err, &fe) || !fe.PasswordProtected {
		t.Error("PasswordProtected flag not set")
	}
}
