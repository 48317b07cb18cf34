package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAddress(t *testing.T) {
	want := Address{0x2c, 0x75, 0x36, 0xe3, 0x60, 0x5d, 0x9c, 0x16, 0xa7, 0xa3, 0xd7, 0xb1, 0x89, 0x8e, 0x52, 0x93, 0x96, 0xa6, 0x5c, 0x23}

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"lowercase with prefix", "0x2c7536e3605d9c16a7a3d7b1898e529396a65c23", false},
		{"checksummed", "0x2C7536E3605d9C16a7a3D7b1898e529396a65c23", false},
		{"without prefix", "2c7536e3605d9c16a7a3d7b1898e529396a65c23", false},
		{"too short", "0x2c7536e3", true},
		{"too long", "0x2c7536e3605d9c16a7a3d7b1898e529396a65c2300", true},
		{"not hex", "0xzz7536e3605d9c16a7a3d7b1898e529396a65c23", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ParseAddress(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAddress) {
					t.Errorf("ParseAddress(%q) error = %v, want ErrInvalidAddress", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAddress(%q) failed: %v", tt.input, err)
			}
			if addr != want {
				t.Errorf("ParseAddress(%q) = %s, want %s", tt.input, addr, want)
			}
		})
	}
}

func TestAddressHex(t *testing.T) {
	addr, err := ParseAddress("0x2C7536E3605D9C16A7A3D7B1898E529396A65C23")
	if err != nil {
		t.Fatalf("ParseAddress failed: %v", err)
	}

	if got := addr.Hex(); got != "0x2c7536e3605d9c16a7a3d7b1898e529396a65c23" {
		t.Errorf("Hex() = %s", got)
	}
	if addr.String() != addr.Hex() {
		t.Error("String() should match Hex()")
	}
}

func TestAddressJSON(t *testing.T) {
	addr, _ := ParseAddress("0x2c7536e3605d9c16a7a3d7b1898e529396a65c23")

	data, err := json.Marshal(map[string]Address{"publisher": addr})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"publisher":"0x2c7536e3605d9c16a7a3d7b1898e529396a65c23"}` {
		t.Errorf("Marshal = %s", data)
	}

	var decoded map[string]Address
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["publisher"] != addr {
		t.Errorf("Unmarshal = %s, want %s", decoded["publisher"], addr)
	}

	if err := json.Unmarshal([]byte(`{"publisher":"0x1234"}`), &decoded); err == nil {
		t.Error("Expected error for short address")
	}
}

func TestIsZeroAddress(t *testing.T) {
	if !IsZeroAddress(Address{}) {
		t.Error("Zero address not detected")
	}
	if IsZeroAddress(Address{19: 1}) {
		t.Error("Non-zero address reported as zero")
	}
}

func TestMessageTypeString(t *testing.T) {
	tests := []struct {
		msgType MessageType
		want    string
	}{
		{MessageTypeStreamMessage, "STREAM_MESSAGE"},
		{MessageTypeGroupKeyRequest, "GROUP_KEY_REQUEST"},
		{MessageTypeGroupKeyResponse, "GROUP_KEY_RESPONSE"},
		{MessageTypeGroupKeyAnnounce, "GROUP_KEY_ANNOUNCE"},
		{MessageTypeGroupKeyErrorResponse, "GROUP_KEY_ERROR_RESPONSE"},
		{MessageType(99), "MessageType(99)"},
	}

	for _, tt := range tests {
		if got := tt.msgType.String(); got != tt.want {
			t.Errorf("MessageType(%d).String() = %s, want %s", uint8(tt.msgType), got, tt.want)
		}
	}

	if uint8(MessageTypeStreamMessage) != 27 || uint8(MessageTypeGroupKeyErrorResponse) != 31 {
		t.Error("Message type values must match the wire protocol")
	}
	if uint8(EncryptionNone) != 0 || uint8(EncryptionRSA) != 1 || uint8(EncryptionAES) != 2 {
		t.Error("Encryption type values must match the wire protocol")
	}
}

func TestStreamMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     StreamMessage
		wantErr bool
	}{
		{
			name: "plain",
			msg:  StreamMessage{EncryptionType: EncryptionNone},
		},
		{
			name: "aes with key id",
			msg:  StreamMessage{EncryptionType: EncryptionAES, GroupKeyID: "k1"},
		},
		{
			name: "aes with rotation",
			msg: StreamMessage{
				EncryptionType: EncryptionAES,
				GroupKeyID:     "k1",
				NewGroupKey:    &EncryptedGroupKey{GroupKeyID: "k2", EncryptedGroupKeyHex: "00"},
			},
		},
		{
			name:    "aes without key id",
			msg:     StreamMessage{EncryptionType: EncryptionAES},
			wantErr: true,
		},
		{
			name:    "rsa without public key",
			msg:     StreamMessage{EncryptionType: EncryptionRSA},
			wantErr: true,
		},
		{
			name: "rotation on plain message",
			msg: StreamMessage{
				EncryptionType: EncryptionNone,
				NewGroupKey:    &EncryptedGroupKey{GroupKeyID: "k2"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessageIDRef(t *testing.T) {
	id := MessageID{StreamID: "s1", Timestamp: 1000, SequenceNumber: 2}

	if ref := id.Ref(); ref != (MessageRef{Timestamp: 1000, SequenceNumber: 2}) {
		t.Errorf("Ref() = %+v", ref)
	}
}
