package qbt

import "testing"

func TestParseMagnetLink(t *testing.T) {
	uri := "magnet:?xt=urn:btih:C12FE1C06BBA254A9DC9F519B335AA7C1367A88A" +
		"&dn=Example+Name&tr=udp%3A%2F%2Ftracker.one%3A80&tr=udp%3A%2F%2Ftracker.two%3A80&xl=1024"

	magnet, err := ParseMagnetLink(uri)
	if err != nil {
		t.Fatalf("ParseMagnetLink failed: %v", err)
	}

	if magnet.Hash != "c12fe1c06bba254a9dc9f519b335aa7c1367a88a" {
		t.Errorf("Unexpected hash %q", magnet.Hash)
	}
	if magnet.DisplayName != "Example Name" {
		t.Errorf("Unexpected display name %q", magnet.DisplayName)
	}
	if len(magnet.Trackers) != 2 || magnet.Trackers[1] != "udp://tracker.two:80" {
		t.Errorf("Unexpected trackers %v", magnet.Trackers)
	}
	if magnet.ExactLength != "1024" {
		t.Errorf("Unexpected exact length %q", magnet.ExactLength)
	}
}

func TestParseMagnetLinkInvalid(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{"empty", ""},
		{"http link", "http://example.com/a.torrent"},
		{"no topic", "magnet:?dn=name"},
		{"non-btih topic", "magnet:?xt=urn:sha1:ABCDEF&dn=x"},
		{"short hash", "magnet:?xt=urn:btih:abc"},
		{"non-hex hash", "magnet:?xt=urn:btih:zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"},
		{"bad base32 hash", "magnet:?xt=urn:btih:11111111111111111111111111111111"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMagnetLink(tt.uri); err == nil {
				t.Errorf("Expected error for %q", tt.uri)
			}
		})
	}
}

func TestParseMagnetLinkBase32(t *testing.T) {
	magnet, err := ParseMagnetLink("magnet:?xt=urn:btih:YEX6DQDLXISUVHOJ6UM3GNNKPQJWPKEK&dn=x")
	if err != nil {
		t.Fatalf("ParseMagnetLink failed: %v", err)
	}
	if magnet.Hash != "c12fe1c06bba254a9dc9f519b335aa7c1367a88a" {
		t.Errorf("Expected base32 hash as hex, got %q", magnet.Hash)
	}
}

func TestTorrentResponseMagnet(t *testing.T) {
	r := TorrentResponse{MagnetURI: "magnet:?xt=urn:btih:c12fe1c06bba254a9dc9f519b335aa7c1367a88a&dn=x"}

	magnet, err := r.Magnet()
	if err != nil {
		t.Fatalf("Magnet failed: %v", err)
	}
	if magnet.Hash != "c12fe1c06bba254a9dc9f519b335aa7c1367a88a" || magnet.DisplayName != "x" {
		t.Errorf("Unexpected magnet %+v", magnet)
	}
}
