package qbt

import (
	"encoding/base64"
	"os"
	"strings"

	"github.com/pkg/errors"
)

type sourceKind int

const (
	sourceBytes sourceKind = iota
	sourceFile
	sourceBase64
	sourcePathOrBase64
)

// TorrentSource is the .torrent payload handed to AddTorrent.
type TorrentSource struct {
	kind  sourceKind
	value string
	data  []byte
}

// TorrentFromBytes uses raw .torrent contents.
func TorrentFromBytes(data []byte) TorrentSource {
	return TorrentSource{kind: sourceBytes, data: data}
}

// TorrentFromFile reads a .torrent file from disk when the torrent is added.
func TorrentFromFile(path string) TorrentSource {
	return TorrentSource{kind: sourceFile, value: path}
}

// TorrentFromBase64 decodes a base64 encoded .torrent.
func TorrentFromBase64(encoded string) TorrentSource {
	return TorrentSource{kind: sourceBase64, value: encoded}
}

// TorrentFromPathOrBase64 reads s as a file path when such a file exists and
// decodes it as base64 otherwise. Prefer TorrentFromFile or TorrentFromBase64;
// this exists for callers that cannot tell the two apart.
func TorrentFromPathOrBase64(s string) TorrentSource {
	return TorrentSource{kind: sourcePathOrBase64, value: s}
}

// Bytes resolves the source to the .torrent contents.
func (s TorrentSource) Bytes() ([]byte, error) {
	switch s.kind {
	case sourceFile:
		return readTorrentFile(s.value)
	case sourceBase64:
		return decodeBase64(s.value)
	case sourcePathOrBase64:
		if info, err := os.Stat(s.value); err == nil && !info.IsDir() {
			return readTorrentFile(s.value)
		}
		data, err := decodeBase64(s.value)
		if err != nil {
			return nil, errors.Wrap(err, "torrent is neither an existing file nor base64")
		}
		return data, nil
	default:
		if len(s.data) == 0 {
			return nil, errors.New("empty torrent payload")
		}
		return s.data, nil
	}
}

func readTorrentFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read torrent file")
	}
	return data, nil
}

func decodeBase64(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode base64 torrent")
	}
	if len(data) == 0 {
		return nil, errors.New("empty torrent payload")
	}
	return data, nil
}
