package qbt

import (
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Client is a qBittorrent Web API client that also speaks the normalized
// model from package shared.
type Client struct {
	mu      sync.RWMutex
	config  Config
	session *session
	limiter *rate.Limiter
	metrics *metrics
	logger  *slog.Logger
}

// Config contains runtime client settings and credentials.
type Config struct {
	BaseURL        string
	Path           string
	Username       string
	Password       string
	RequestTimeout time.Duration

	// Proxy selects a proxy for every request, e.g. http.ProxyURL(u).
	Proxy func(*http.Request) (*url.URL, error)

	// Transport replaces the base round tripper (tests, custom TLS).
	Transport http.RoundTripper

	Logger *slog.Logger
	Debug  bool

	// Registerer receives the client's Prometheus collectors when set.
	Registerer prometheus.Registerer

	// RateLimit caps outgoing requests per second; zero disables pacing.
	RateLimit float64
	RateBurst int

	// ReloginOnAuthFailure makes a 401/403 on a regular call drop the session,
	// log in again and repeat the call once.
	ReloginOnAuthFailure bool
}

const (
	DefaultBaseURL        = "http://localhost:9091"
	DefaultPath           = "/api/v2"
	DefaultRequestTimeout = 5 * time.Second
	DefaultRateBurst      = 1
)

type session struct {
	mu    sync.RWMutex
	token string
	// gen changes on every clear; a login started under an older gen must
	// not cache its token.
	gen   uint64
	group singleflight.Group
}

// TorrentState is the daemon's native torrent state.
type TorrentState string

const (
	// Some error occurred, applies to paused torrents
	TorrentStateError TorrentState = "error"

	// Torrent is paused and has finished downloading
	TorrentStatePausedUP TorrentState = "pausedUP"

	// Torrent is paused and has NOT finished downloading
	TorrentStatePausedDL TorrentState = "pausedDL"

	// Queuing is enabled and torrent is queued for upload
	TorrentStateQueuedUP TorrentState = "queuedUP"

	// Queuing is enabled and torrent is queued for download
	TorrentStateQueuedDL TorrentState = "queuedDL"

	// Torrent is being seeded and data is being transferred
	TorrentStateUploading TorrentState = "uploading"

	// Torrent is being seeded, but no connection were made
	TorrentStateStalledUP TorrentState = "stalledUP"

	// Torrent has finished downloading and is being checked
	TorrentStateCheckingUP TorrentState = "checkingUP"

	// Same as checkingUP, but torrent has NOT finished downloading
	TorrentStateCheckingDL TorrentState = "checkingDL"

	// Torrent is being downloaded and data is being transferred
	TorrentStateDownloading TorrentState = "downloading"

	// Torrent is being downloaded, but no connection were made
	TorrentStateStalledDL TorrentState = "stalledDL"

	TorrentStateForcedDL TorrentState = "forcedDL"

	TorrentStateForcedUP TorrentState = "forcedUP"

	// Torrent has just started downloading and is fetching metadata
	TorrentStateMetaDL TorrentState = "metaDL"

	TorrentStateAllocating TorrentState = "allocating"

	TorrentStateQueuedForChecking TorrentState = "queuedForChecking"

	TorrentStateCheckingResumeData TorrentState = "checkingResumeData"

	TorrentStateMoving TorrentState = "moving"

	TorrentStateUnknown TorrentState = "unknown"

	TorrentStateMissingFiles TorrentState = "missingFiles"
)

// AllTorrentStates lists every native state the daemon documents.
var AllTorrentStates = []TorrentState{
	TorrentStateError,
	TorrentStatePausedUP,
	TorrentStatePausedDL,
	TorrentStateQueuedUP,
	TorrentStateQueuedDL,
	TorrentStateUploading,
	TorrentStateStalledUP,
	TorrentStateCheckingUP,
	TorrentStateCheckingDL,
	TorrentStateDownloading,
	TorrentStateStalledDL,
	TorrentStateForcedDL,
	TorrentStateForcedUP,
	TorrentStateMetaDL,
	TorrentStateAllocating,
	TorrentStateQueuedForChecking,
	TorrentStateCheckingResumeData,
	TorrentStateMoving,
	TorrentStateUnknown,
	TorrentStateMissingFiles,
}

// TorrentFilter narrows /torrents/info.
type TorrentFilter string

const (
	FilterAll         TorrentFilter = "all"
	FilterDownloading TorrentFilter = "downloading"
	FilterCompleted   TorrentFilter = "completed"
	FilterPaused      TorrentFilter = "paused"
	FilterActive      TorrentFilter = "active"
	FilterInactive    TorrentFilter = "inactive"
	FilterResumed     TorrentFilter = "resumed"
	FilterStalled     TorrentFilter = "stalled"
	FilterErrored     TorrentFilter = "errored"
)

// ListOptions filters listing endpoints. A nil Category means any category;
// a pointer to "" means torrents without a category.
type ListOptions struct {
	Hashes   Hashes
	Filter   TorrentFilter
	Category *string
}

// Hashes is a set of torrent hashes. Use AllHashes to address every torrent.
type Hashes []string

// AllHashes is the daemon's sentinel for "every torrent".
var AllHashes = Hashes{"all"}

// AddTorrentOptions are extra multipart fields sent with /torrents/add.
type AddTorrentOptions struct {
	// Filename of the uploaded part; "torrent" when empty.
	Filename string

	SavePath           string
	Category           string
	Tags               string
	Rename             string
	Paused             bool
	SkipChecking       bool
	RootFolder         *bool
	SequentialDownload bool
	FirstLastPiecePrio bool
	UploadLimit        int64
	DownloadLimit      int64

	// Extra carries fields this struct does not model.
	Extra map[string]string
}

// TorrentResponse is the native record returned by /torrents/info.
type TorrentResponse struct {
	AddedOn       int64        `json:"added_on"`
	AmountLeft    int64        `json:"amount_left"`
	Category      string       `json:"category"`
	CompletionOn  int64        `json:"completion_on"`
	Dlspeed       int64        `json:"dlspeed"`
	Downloaded    int64        `json:"downloaded"`
	Eta           int64        `json:"eta"`
	ForceStart    bool         `json:"force_start"`
	Hash          string       `json:"hash"`
	MagnetURI     string       `json:"magnet_uri"`
	Name          string       `json:"name"`
	NumComplete   int          `json:"num_complete"`
	NumIncomplete int          `json:"num_incomplete"`
	NumLeechs     int          `json:"num_leechs"`
	NumSeeds      int          `json:"num_seeds"`
	Priority      int          `json:"priority"`
	Progress      float64      `json:"progress"`
	Ratio         float64      `json:"ratio"`
	SavePath      string       `json:"save_path"`
	SeqDl         bool         `json:"seq_dl"`
	Size          int64        `json:"size"`
	State         TorrentState `json:"state"`
	SuperSeeding  bool         `json:"super_seeding"`
	Tags          string       `json:"tags"`
	TotalSize     int64        `json:"total_size"`
	Tracker       string       `json:"tracker"`
	Upspeed       int64        `json:"upspeed"`
	Uploaded      int64        `json:"uploaded"`
}

// TorrentProperties is the generic property set of one torrent.
type TorrentProperties struct {
	SavePath               string  `json:"save_path"`
	CreationDate           int64   `json:"creation_date"`
	PieceSize              int64   `json:"piece_size"`
	Comment                string  `json:"comment"`
	TotalWasted            int64   `json:"total_wasted"`
	TotalUploaded          int64   `json:"total_uploaded"`
	TotalUploadedSession   int64   `json:"total_uploaded_session"`
	TotalDownloaded        int64   `json:"total_downloaded"`
	TotalDownloadedSession int64   `json:"total_downloaded_session"`
	UpLimit                int64   `json:"up_limit"`
	DlLimit                int64   `json:"dl_limit"`
	TimeElapsed            int64   `json:"time_elapsed"`
	SeedingTime            int64   `json:"seeding_time"`
	NbConnections          int     `json:"nb_connections"`
	NbConnectionsLimit     int     `json:"nb_connections_limit"`
	ShareRatio             float64 `json:"share_ratio"`
	AdditionDate           int64   `json:"addition_date"`
	CompletionDate         int64   `json:"completion_date"`
	CreatedBy              string  `json:"created_by"`
	DlSpeedAvg             int64   `json:"dl_speed_avg"`
	DlSpeed                int64   `json:"dl_speed"`
	Eta                    int64   `json:"eta"`
	LastSeen               int64   `json:"last_seen"`
	Peers                  int     `json:"peers"`
	PeersTotal             int     `json:"peers_total"`
	PiecesHave             int     `json:"pieces_have"`
	PiecesNum              int     `json:"pieces_num"`
	Reannounce             int64   `json:"reannounce"`
	Seeds                  int     `json:"seeds"`
	SeedsTotal             int     `json:"seeds_total"`
	TotalSize              int64   `json:"total_size"`
	UpSpeedAvg             int64   `json:"up_speed_avg"`
	UpSpeed                int64   `json:"up_speed"`
}

// TrackerStatus is the native tracker state.
type TrackerStatus int

const (
	// Tracker is disabled (used for DHT, PeX, and LSD)
	TrackerDisabled TrackerStatus = iota

	// Tracker has not been contacted yet
	TrackerWaiting

	// Tracker has been contacted and is working
	TrackerWorking

	// Tracker is currently being updated
	TrackerUpdating

	// Tracker has been contacted, but it is not working
	TrackerErrored
)

// TorrentTracker is one entry of /torrents/trackers.
type TorrentTracker struct {
	URL           string        `json:"url"`
	Status        TrackerStatus `json:"status"`
	Tier          int           `json:"tier"`
	NumPeers      int           `json:"num_peers"`
	NumSeeds      int           `json:"num_seeds"`
	NumLeeches    int           `json:"num_leeches"`
	NumDownloaded int           `json:"num_downloaded"`
	Msg           string        `json:"msg"`
}

// WebSeed is one entry of /torrents/webseeds.
type WebSeed struct {
	URL string `json:"url"`
}

// FilePriority is the native per-file download priority.
type FilePriority int

const (
	// Do not download
	FilePrioritySkip   FilePriority = 0
	FilePriorityNormal FilePriority = 1
	FilePriorityHigh   FilePriority = 6
	FilePriorityMax    FilePriority = 7
)

// TorrentFile is one entry of /torrents/files.
type TorrentFile struct {
	Index        int          `json:"index"`
	Name         string       `json:"name"`
	Size         int64        `json:"size"`
	Progress     float64      `json:"progress"`
	Priority     FilePriority `json:"priority"`
	IsSeed       bool         `json:"is_seed"`
	PieceRange   []int        `json:"piece_range"`
	Availability float64      `json:"availability"`
}

// PieceState is the download state of one piece.
type PieceState int

const (
	PieceNotDownloaded PieceState = iota
	PieceRequested
	PieceDownloaded
)
