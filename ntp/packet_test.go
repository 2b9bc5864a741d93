package ntp

import "testing"

func TestSettingsByteRoundTrip(t *testing.T) {
	s := settingsByte(0, 4, 3)
	if packetMode(s) != 3 {
		t.Fatalf("packetMode(%#x) = %d, want 3", s, packetMode(s))
	}
}

func TestMarshalUnmarshalPacketRoundTrip(t *testing.T) {
	p := clientRequest(0x0102030405060708)

	b, err := marshalPacket(p)
	if err != nil {
		t.Fatalf("marshalPacket: %v", err)
	}
	if len(b) != packetSize {
		t.Fatalf("marshalled packet is %d bytes, want %d", len(b), packetSize)
	}

	got, err := unmarshalPacket(b)
	if err != nil {
		t.Fatalf("unmarshalPacket: %v", err)
	}
	if got.TransTimeSec != p.TransTimeSec || got.TransTimeFrac != p.TransTimeFrac {
		t.Fatalf("transmit timestamp did not round-trip: got %d/%d, want %d/%d",
			got.TransTimeSec, got.TransTimeFrac, p.TransTimeSec, p.TransTimeFrac)
	}
	if got.Settings != p.Settings {
		t.Fatalf("settings byte did not round-trip: got %#x, want %#x", got.Settings, p.Settings)
	}
}

func TestUnmarshalPacketRejectsWrongSize(t *testing.T) {
	if _, err := unmarshalPacket(make([]byte, packetSize-1)); err == nil {
		t.Fatalf("expected an error for a short packet")
	}
}

func TestNtpTimestampToUnixMs(t *testing.T) {
	// 2208988800 is exactly the Unix epoch in NTP seconds, zero fraction.
	if got := ntpTimestampToUnixMs(ntpEpochOffsetSeconds, 0); got != 0 {
		t.Fatalf("ntpTimestampToUnixMs(epoch) = %d, want 0", got)
	}
	if got := ntpTimestampToUnixMs(ntpEpochOffsetSeconds+1, 0); got != 1000 {
		t.Fatalf("ntpTimestampToUnixMs(epoch+1s) = %d, want 1000", got)
	}
}
