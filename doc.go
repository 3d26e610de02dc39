/*
Package qbt is a client for the qBittorrent Web API that can also present
torrents in the tool-neutral model of package shared.

Highlights:
  - Lazy cookie session: the first call logs in, concurrent callers share one login
  - Single attempt per call; retry policy is left to the caller (see IsRetryableError)
  - Typed errors matched with errors.Is: ErrAuthentication, ErrNotFound,
    ErrRemoteOperation and ErrTransport
  - Native daemon states mapped to shared.State by NormalizeState

Note that RemoveTorrentDefault deletes downloaded data as well as the torrent.

Quick start:

	import (
	    "context"
	    "log"

	    qbt "github.com/jfxdev/go-qbt-client"
	)

	func main() {
	    client, err := qbt.New(qbt.Config{
	        BaseURL:  "http://localhost:8080",
	        Username: "admin",
	        Password: "password",
	    })
	    if err != nil {
	        log.Fatal(err)
	    }
	    defer client.Close()

	    data, err := client.GetAllData(context.Background())
	    if err != nil {
	        log.Fatal(err)
	    }
	    log.Println(len(data.Torrents), "torrents")
	}
*/
package qbt
