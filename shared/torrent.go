// Package shared holds the client-agnostic torrent model.
//
// Back-end clients translate their native records into these types so that
// callers can manage qBittorrent, Transmission, Deluge and friends through
// one vocabulary.
package shared

import "context"

// State is the canonical lifecycle state of a torrent.
type State string

const (
	StateDownloading State = "downloading"
	StateSeeding     State = "seeding"
	StatePaused      State = "paused"
	StateQueued      State = "queued"
	StateChecking    State = "checking"
	StateWarning     State = "warning"
	StateError       State = "error"
	StateUnknown     State = "unknown"
)

// Torrent is the normalized view of one torrent.
type Torrent struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	StateMessage    string  `json:"stateMessage"`
	State           State   `json:"state"`
	DateAdded       string  `json:"dateAdded"`
	IsCompleted     bool    `json:"isCompleted"`
	Progress        float64 `json:"progress"`
	Label           string  `json:"label,omitempty"`
	DateCompleted   string  `json:"dateCompleted"`
	SavePath        string  `json:"savePath"`
	UploadSpeed     int64   `json:"uploadSpeed"`
	DownloadSpeed   int64   `json:"downloadSpeed"`
	ETA             int64   `json:"eta"`
	QueuePosition   int     `json:"queuePosition"`
	ConnectedPeers  int     `json:"connectedPeers"`
	ConnectedSeeds  int     `json:"connectedSeeds"`
	TotalPeers      int     `json:"totalPeers"`
	TotalSeeds      int     `json:"totalSeeds"`
	TotalSelected   int64   `json:"totalSelected"`
	TotalSize       int64   `json:"totalSize"`
	TotalUploaded   int64   `json:"totalUploaded"`
	TotalDownloaded int64   `json:"totalDownloaded"`
	Ratio           float64 `json:"ratio"`
}

// Label is a derived category with the number of torrents carrying it.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AllClientData is one full snapshot of a client.
type AllClientData struct {
	Torrents []Torrent        `json:"torrents"`
	Labels   map[string]Label `json:"labels"`
}

// AddTorrentOptions are the back-end independent add options.
type AddTorrentOptions struct {
	StartPaused bool
	Label       string
}

// TorrentClient is implemented by every back-end that can produce the
// normalized model.
type TorrentClient interface {
	GetAllData(ctx context.Context) (*AllClientData, error)
	GetTorrent(ctx context.Context, id string) (*Torrent, error)
	NormalizedAddTorrent(ctx context.Context, data []byte, opts AddTorrentOptions) (*Torrent, error)
}

// CountLabels builds the label map for a batch of torrents. Torrents without
// a label are skipped.
func CountLabels(torrents []Torrent) map[string]Label {
	labels := make(map[string]Label)
	for _, t := range torrents {
		if t.Label == "" {
			continue
		}
		l, ok := labels[t.Label]
		if !ok {
			l = Label{ID: t.Label, Name: t.Label}
		}
		l.Count++
		labels[t.Label] = l
	}
	return labels
}
