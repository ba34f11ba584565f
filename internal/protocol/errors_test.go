package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrBadRequest,
		ErrUnknownArena,
		ErrUnknownMissile,
		ErrUnknownStructure,
		ErrWorldNotFound,
		ErrWorldUnloaded,
		ErrNoFacing,
		ErrBadColor,
		ErrLoad,
		ErrPaste,
		ErrShutdown,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestDecodeBase(t *testing.T) {
	m, err := DecodeBase([]byte(`{"type":"PLACE","protocol_version":"1.0","arena":"classic"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != TypePlace || m.ProtocolVersion != Version {
		t.Fatalf("unexpected base: %+v", m)
	}
}
