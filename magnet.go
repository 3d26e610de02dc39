package qbt

import (
	"github.com/anacrolix/torrent/metainfo"
	"github.com/pkg/errors"
)

// MagnetLink is the parsed form of a magnet URI.
type MagnetLink struct {
	Hash             string
	DisplayName      string
	Trackers         []string
	ExactLength      string
	ExactSource      string
	Keywords         string
	AcceptableSource string
}

// ParseMagnetLink extracts information from a magnet link. The link must
// carry a BitTorrent v1 info-hash (urn:btih, hex or base32); Hash is always
// returned as lowercase hex.
func ParseMagnetLink(magnetURI string) (*MagnetLink, error) {
	m, err := metainfo.ParseMagnetUri(magnetURI)
	if err != nil {
		return nil, errors.Wrap(err, "invalid magnet link")
	}

	return &MagnetLink{
		Hash:             m.InfoHash.HexString(),
		DisplayName:      m.DisplayName,
		Trackers:         m.Trackers,
		ExactLength:      m.Params.Get("xl"),
		ExactSource:      m.Params.Get("xs"),
		Keywords:         m.Params.Get("kt"),
		AcceptableSource: m.Params.Get("as"),
	}, nil
}

// Magnet parses the record's magnet URI.
func (t TorrentResponse) Magnet() (*MagnetLink, error) {
	return ParseMagnetLink(t.MagnetURI)
}
