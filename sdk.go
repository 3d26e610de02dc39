package qbt

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/pkg/errors"

	"github.com/jfxdev/go-qbt-client/request"
	"github.com/jfxdev/go-qbt-client/shared"
)

// addFailedBody is what /torrents/add answers when the daemon rejects a torrent.
const addFailedBody = "Fails."

// String joins the set for the wire. AllHashes is sent as is.
func (h Hashes) String() string {
	if h.IsAll() {
		return "all"
	}
	return strings.Join(h, "|")
}

// IsAll reports whether the set addresses every torrent.
func (h Hashes) IsAll() bool {
	return len(h) == 1 && h[0] == "all"
}

func (qb *Client) get(ctx context.Context, path string, query url.Values) (*request.Response, error) {
	return qb.dispatch(ctx, call{method: http.MethodGet, path: path, query: query})
}

func (qb *Client) post(ctx context.Context, path string, form url.Values) (*request.Response, error) {
	return qb.dispatch(ctx, call{
		method: http.MethodPost,
		path:   path,
		body:   []request.RequestOption{request.WithForm(form)},
	})
}

func (qb *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	resp, err := qb.get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := resp.JSON(v); err != nil {
		return errors.Wrapf(err, "error decoding %s response", path)
	}
	return nil
}

// errNoHashes rejects an empty hash set, which the daemon would silently ignore.
var errNoHashes = errors.New("no torrent hashes given; use AllHashes to address every torrent")

// action posts a bulk action for a hash set.
func (qb *Client) action(ctx context.Context, path string, hashes Hashes, extra url.Values) error {
	if len(hashes) == 0 {
		return errNoHashes
	}
	form := url.Values{"hashes": {hashes.String()}}
	for k, v := range extra {
		form[k] = v
	}
	if _, err := qb.post(ctx, path, form); err != nil {
		return errors.Wrapf(err, "%s %s", strings.TrimPrefix(path, "/torrents/"), hashes)
	}
	return nil
}

// Version returns the daemon's application version, e.g. "v4.6.2".
func (qb *Client) Version(ctx context.Context) (string, error) {
	resp, err := qb.get(ctx, "/app/version", nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to get version")
	}
	return resp.String(), nil
}

// APIVersion returns the Web API version, e.g. "2.9.3".
func (qb *Client) APIVersion(ctx context.Context) (string, error) {
	resp, err := qb.get(ctx, "/app/webapiVersion", nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to get api version")
	}
	return resp.String(), nil
}

// ListTorrents returns the native records matching opts, in daemon order.
func (qb *Client) ListTorrents(ctx context.Context, opts ListOptions) ([]TorrentResponse, error) {
	query := url.Values{}
	if len(opts.Hashes) > 0 {
		query.Set("hashes", opts.Hashes.String())
	}
	if opts.Filter != "" {
		query.Set("filter", string(opts.Filter))
	}
	if opts.Category != nil {
		query.Set("category", *opts.Category)
	}

	var torrents []TorrentResponse
	if err := qb.getJSON(ctx, "/torrents/info", query, &torrents); err != nil {
		return nil, errors.Wrap(err, "failed to list torrents")
	}
	return torrents, nil
}

// GetTorrent returns one torrent in the canonical model. It fails with a
// NotFound error when the daemon has no torrent with that hash.
func (qb *Client) GetTorrent(ctx context.Context, hash string) (*shared.Torrent, error) {
	list, err := qb.ListTorrents(ctx, ListOptions{Hashes: Hashes{hash}})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, newNotFoundError(hash)
	}
	t := NormalizeTorrent(list[0])
	return &t, nil
}

// GetAllData lists every torrent in the canonical model together with the
// label counts derived from their categories.
func (qb *Client) GetAllData(ctx context.Context) (*shared.AllClientData, error) {
	list, err := qb.ListTorrents(ctx, ListOptions{})
	if err != nil {
		return nil, err
	}
	return NormalizeTorrents(list), nil
}

func hashQuery(hash string) url.Values {
	return url.Values{"hash": {hash}}
}

func (qb *Client) TorrentProperties(ctx context.Context, hash string) (*TorrentProperties, error) {
	var props TorrentProperties
	if err := qb.getJSON(ctx, "/torrents/properties", hashQuery(hash), &props); err != nil {
		return nil, errors.Wrapf(err, "failed to get properties of %s", hash)
	}
	return &props, nil
}

func (qb *Client) TorrentTrackers(ctx context.Context, hash string) ([]TorrentTracker, error) {
	var trackers []TorrentTracker
	if err := qb.getJSON(ctx, "/torrents/trackers", hashQuery(hash), &trackers); err != nil {
		return nil, errors.Wrapf(err, "failed to get trackers of %s", hash)
	}
	return trackers, nil
}

func (qb *Client) TorrentWebSeeds(ctx context.Context, hash string) ([]WebSeed, error) {
	var seeds []WebSeed
	if err := qb.getJSON(ctx, "/torrents/webseeds", hashQuery(hash), &seeds); err != nil {
		return nil, errors.Wrapf(err, "failed to get web seeds of %s", hash)
	}
	return seeds, nil
}

func (qb *Client) TorrentFiles(ctx context.Context, hash string) ([]TorrentFile, error) {
	var files []TorrentFile
	if err := qb.getJSON(ctx, "/torrents/files", hashQuery(hash), &files); err != nil {
		return nil, errors.Wrapf(err, "failed to get files of %s", hash)
	}
	return files, nil
}

func (qb *Client) TorrentPieceStates(ctx context.Context, hash string) ([]PieceState, error) {
	var states []PieceState
	if err := qb.getJSON(ctx, "/torrents/pieceStates", hashQuery(hash), &states); err != nil {
		return nil, errors.Wrapf(err, "failed to get piece states of %s", hash)
	}
	return states, nil
}

func (qb *Client) TorrentPieceHashes(ctx context.Context, hash string) ([]string, error) {
	var hashes []string
	if err := qb.getJSON(ctx, "/torrents/pieceHashes", hashQuery(hash), &hashes); err != nil {
		return nil, errors.Wrapf(err, "failed to get piece hashes of %s", hash)
	}
	return hashes, nil
}

// SetFilePriority sets the priority of the files with the given indexes.
func (qb *Client) SetFilePriority(ctx context.Context, hash string, ids []int, priority FilePriority) error {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	_, err := qb.post(ctx, "/torrents/filePrio", url.Values{
		"hash":     {hash},
		"id":       {strings.Join(parts, "|")},
		"priority": {strconv.Itoa(int(priority))},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to set file priority of %s", hash)
	}
	return nil
}

func (qb *Client) SetTorrentLocation(ctx context.Context, hashes Hashes, location string) error {
	return qb.action(ctx, "/torrents/setLocation", hashes, url.Values{"location": {location}})
}

// SetTorrentName renames a torrent. The daemon takes a single hash here.
func (qb *Client) SetTorrentName(ctx context.Context, hashes Hashes, name string) error {
	if len(hashes) == 0 {
		return errNoHashes
	}
	_, err := qb.post(ctx, "/torrents/rename", url.Values{
		"hash": {hashes.String()},
		"name": {name},
	})
	if err != nil {
		return errors.Wrapf(err, "rename %s", hashes)
	}
	return nil
}

// SetTorrentCategory assigns a category; an empty category clears it.
func (qb *Client) SetTorrentCategory(ctx context.Context, hashes Hashes, category string) error {
	return qb.action(ctx, "/torrents/setCategory", hashes, url.Values{"category": {category}})
}

func (qb *Client) CreateCategory(ctx context.Context, name, savePath string) error {
	_, err := qb.post(ctx, "/torrents/createCategory", url.Values{
		"category": {name},
		"savePath": {savePath},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create category %q", name)
	}
	return nil
}

func (qb *Client) RemoveCategory(ctx context.Context, names ...string) error {
	_, err := qb.post(ctx, "/torrents/removeCategories", url.Values{
		"categories": {strings.Join(names, "\n")},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to remove categories %v", names)
	}
	return nil
}

func (qb *Client) PauseTorrent(ctx context.Context, hashes Hashes) error {
	return qb.action(ctx, "/torrents/pause", hashes, nil)
}

func (qb *Client) ResumeTorrent(ctx context.Context, hashes Hashes) error {
	return qb.action(ctx, "/torrents/resume", hashes, nil)
}

func (qb *Client) RecheckTorrent(ctx context.Context, hashes Hashes) error {
	return qb.action(ctx, "/torrents/recheck", hashes, nil)
}

func (qb *Client) ReannounceTorrent(ctx context.Context, hashes Hashes) error {
	return qb.action(ctx, "/torrents/reannounce", hashes, nil)
}

// RemoveTorrent deletes torrents, and their downloaded data when deleteFiles
// is true.
func (qb *Client) RemoveTorrent(ctx context.Context, hashes Hashes, deleteFiles bool) error {
	return qb.action(ctx, "/torrents/delete", hashes, url.Values{
		"deleteFiles": {strconv.FormatBool(deleteFiles)},
	})
}

// RemoveTorrentDefault deletes torrents AND their downloaded data. This is
// the historical default of this client; use RemoveTorrent(ctx, h, false) to
// keep files on disk.
func (qb *Client) RemoveTorrentDefault(ctx context.Context, hashes Hashes) error {
	return qb.RemoveTorrent(ctx, hashes, true)
}

// QueueUp moves torrents one place up the queue. Queueing must be enabled on
// the daemon, otherwise it answers 409.
func (qb *Client) QueueUp(ctx context.Context, hashes Hashes) error {
	return qb.action(ctx, "/torrents/increasePrio", hashes, nil)
}

func (qb *Client) QueueDown(ctx context.Context, hashes Hashes) error {
	return qb.action(ctx, "/torrents/decreasePrio", hashes, nil)
}

func (qb *Client) TopPriority(ctx context.Context, hashes Hashes) error {
	return qb.action(ctx, "/torrents/topPrio", hashes, nil)
}

func (qb *Client) BottomPriority(ctx context.Context, hashes Hashes) error {
	return qb.action(ctx, "/torrents/bottomPrio", hashes, nil)
}

func (qb *Client) AddTrackers(ctx context.Context, hash string, urls []string) error {
	_, err := qb.post(ctx, "/torrents/addTrackers", url.Values{
		"hash": {hash},
		"urls": {strings.Join(urls, "\n")},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to add trackers to %s", hash)
	}
	return nil
}

func (qb *Client) EditTracker(ctx context.Context, hash, origURL, newURL string) error {
	_, err := qb.post(ctx, "/torrents/editTracker", url.Values{
		"hash":    {hash},
		"origUrl": {origURL},
		"newUrl":  {newURL},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to edit tracker of %s", hash)
	}
	return nil
}

func (qb *Client) RemoveTrackers(ctx context.Context, hash string, urls []string) error {
	_, err := qb.post(ctx, "/torrents/removeTrackers", url.Values{
		"hash": {hash},
		"urls": {strings.Join(urls, "|")},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to remove trackers from %s", hash)
	}
	return nil
}

// fields renders the options as /torrents/add form fields.
func (o AddTorrentOptions) fields() map[string]string {
	f := make(map[string]string, len(o.Extra)+8)
	for k, v := range o.Extra {
		f[k] = v
	}
	if o.SavePath != "" {
		f["savepath"] = o.SavePath
	}
	if o.Category != "" {
		f["category"] = o.Category
	}
	if o.Tags != "" {
		f["tags"] = o.Tags
	}
	if o.Rename != "" {
		f["rename"] = o.Rename
	}
	if o.Paused {
		f["paused"] = "true"
	}
	if o.SkipChecking {
		f["skip_checking"] = "true"
	}
	if o.RootFolder != nil {
		f["root_folder"] = strconv.FormatBool(*o.RootFolder)
	}
	if o.SequentialDownload {
		f["sequentialDownload"] = "true"
	}
	if o.FirstLastPiecePrio {
		f["firstLastPiecePrio"] = "true"
	}
	if o.UploadLimit > 0 {
		f["upLimit"] = strconv.FormatInt(o.UploadLimit, 10)
	}
	if o.DownloadLimit > 0 {
		f["dlLimit"] = strconv.FormatInt(o.DownloadLimit, 10)
	}
	return f
}

func (qb *Client) add(ctx context.Context, fields map[string]string, files ...request.FilePart) error {
	resp, err := qb.dispatch(ctx, call{
		method: http.MethodPost,
		path:   "/torrents/add",
		body:   []request.RequestOption{request.WithMultipart(fields, files...)},
	})
	if err != nil {
		return errors.Wrap(err, "failed to add torrent")
	}
	if resp.String() == addFailedBody {
		return newRemoteOperationError("daemon rejected the torrent")
	}
	return nil
}

// AddTorrent uploads a .torrent file. The daemon answering "Fails." is
// reported as a RemoteOperation error.
func (qb *Client) AddTorrent(ctx context.Context, src TorrentSource, opts AddTorrentOptions) error {
	data, err := src.Bytes()
	if err != nil {
		return err
	}

	filename := opts.Filename
	if filename == "" {
		filename = "torrent"
	}

	return qb.add(ctx, opts.fields(), request.FilePart{
		Field:       "file",
		Filename:    filename,
		ContentType: "application/x-bittorrent",
		Data:        data,
	})
}

// AddTorrentLink adds a torrent from a magnet URI.
func (qb *Client) AddTorrentLink(ctx context.Context, magnetURI string, opts AddTorrentOptions) error {
	if _, err := ParseMagnetLink(magnetURI); err != nil {
		return err
	}

	fields := opts.fields()
	fields["urls"] = magnetURI
	return qb.add(ctx, fields)
}

// InfoHash returns the hex info-hash of a .torrent payload.
func InfoHash(data []byte) (string, error) {
	mi, err := metainfo.Load(bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse torrent metainfo")
	}
	return mi.HashInfoBytes().HexString(), nil
}

// NormalizedAddTorrent adds a .torrent and returns it in the canonical model.
func (qb *Client) NormalizedAddTorrent(ctx context.Context, data []byte, opts shared.AddTorrentOptions) (*shared.Torrent, error) {
	hash, err := InfoHash(data)
	if err != nil {
		return nil, err
	}

	err = qb.AddTorrent(ctx, TorrentFromBytes(data), AddTorrentOptions{
		Paused:   opts.StartPaused,
		Category: opts.Label,
	})
	if err != nil {
		return nil, err
	}

	return qb.GetTorrent(ctx, hash)
}
