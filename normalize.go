package qbt

import (
	"time"

	"github.com/jfxdev/go-qbt-client/shared"
)

// isoMillis matches JavaScript's Date.toISOString, which other back-ends emit.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// stateTable has an entry for every value in AllTorrentStates.
var stateTable = map[TorrentState]shared.State{
	TorrentStateForcedDL: shared.StateDownloading,
	TorrentStateMetaDL:   shared.StateDownloading,

	TorrentStateAllocating: shared.StateQueued,

	TorrentStateForcedUP: shared.StateSeeding,

	TorrentStatePausedDL: shared.StatePaused,
	TorrentStatePausedUP: shared.StatePaused,

	TorrentStateQueuedDL: shared.StateQueued,
	TorrentStateQueuedUP: shared.StateQueued,

	TorrentStateCheckingDL:         shared.StateChecking,
	TorrentStateCheckingUP:         shared.StateChecking,
	TorrentStateQueuedForChecking:  shared.StateChecking,
	TorrentStateCheckingResumeData: shared.StateChecking,
	TorrentStateMoving:             shared.StateChecking,

	TorrentStateUnknown:      shared.StateError,
	TorrentStateMissingFiles: shared.StateError,

	// Active transfer states carry no lifecycle decision of their own.
	TorrentStateUploading:   shared.StateUnknown,
	TorrentStateStalledUP:   shared.StateUnknown,
	TorrentStateDownloading: shared.StateUnknown,
	TorrentStateStalledDL:   shared.StateUnknown,
	TorrentStateError:       shared.StateUnknown,
}

// NormalizeState maps a native state to the shared vocabulary. Values the
// table does not know map to shared.StateUnknown.
func NormalizeState(state TorrentState) shared.State {
	if s, ok := stateTable[state]; ok {
		return s
	}
	return shared.StateUnknown
}

// NormalizeTorrent converts a native record. It never fails: missing fields
// arrive as zero values and are copied through as such. DateCompleted is
// filled even for incomplete torrents; check IsCompleted before using it.
func NormalizeTorrent(t TorrentResponse) shared.Torrent {
	return shared.Torrent{
		ID:              t.Hash,
		Name:            t.Name,
		StateMessage:    "",
		State:           NormalizeState(t.State),
		DateAdded:       epochToISO(t.AddedOn),
		IsCompleted:     t.Progress >= 100,
		Progress:        t.Progress,
		Label:           t.Category,
		DateCompleted:   epochToISO(t.CompletionOn),
		SavePath:        t.SavePath,
		UploadSpeed:     t.Upspeed,
		DownloadSpeed:   t.Dlspeed,
		ETA:             t.Eta,
		QueuePosition:   t.Priority,
		ConnectedPeers:  t.NumLeechs,
		ConnectedSeeds:  t.NumSeeds,
		TotalPeers:      t.NumIncomplete,
		TotalSeeds:      t.NumComplete,
		TotalSelected:   t.Size,
		TotalSize:       t.TotalSize,
		TotalUploaded:   t.Uploaded,
		TotalDownloaded: t.Downloaded,
		Ratio:           t.Ratio,
	}
}

// NormalizeTorrents converts a listing and derives its label map.
func NormalizeTorrents(list []TorrentResponse) *shared.AllClientData {
	torrents := make([]shared.Torrent, 0, len(list))
	for _, t := range list {
		torrents = append(torrents, NormalizeTorrent(t))
	}
	return &shared.AllClientData{
		Torrents: torrents,
		Labels:   shared.CountLabels(torrents),
	}
}

func epochToISO(seconds int64) string {
	return time.UnixMilli(seconds * 1000).UTC().Format(isoMillis)
}
