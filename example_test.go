package qbt_test

import (
	"context"
	"fmt"
	"os"

	qbt "github.com/jfxdev/go-qbt-client"
)

func ExampleClient_ListTorrents() {
	if os.Getenv("QBT_EXAMPLE_LIVE") == "" {
		fmt.Println("skipped")
		// Output: skipped
		return
	}

	client, _ := qbt.New(qbt.Config{BaseURL: "http://localhost:8080"})
	defer client.Close()

	list, _ := client.ListTorrents(context.Background(), qbt.ListOptions{})
	fmt.Printf("torrents: %d\n", len(list))
}

func ExampleClient_AddTorrentLink() {
	if os.Getenv("QBT_EXAMPLE_LIVE") == "" {
		fmt.Println("skipped")
		// Output: skipped
		return
	}

	client, _ := qbt.New(qbt.Config{BaseURL: "http://localhost:8080"})
	defer client.Close()

	_ = client.AddTorrentLink(context.Background(), "magnet:?xt=urn:btih:c12fe1c06bba254a9dc9f519b335aa7c1367a88a", qbt.AddTorrentOptions{
		SavePath:     "/downloads",
		Category:     "movies",
		Paused:       true,
		SkipChecking: true,
	})
}

func ExampleHashes_String() {
	fmt.Println(qbt.Hashes{"8c212779b4abde7c6bc608063a0d008b7e40ce32", "c12fe1c06bba254a9dc9f519b335aa7c1367a88a"})
	fmt.Println(qbt.AllHashes)
	// Output:
	// 8c212779b4abde7c6bc608063a0d008b7e40ce32|c12fe1c06bba254a9dc9f519b335aa7c1367a88a
	// all
}

func ExampleNormalizeState() {
	fmt.Println(qbt.NormalizeState(qbt.TorrentStatePausedUP))
	fmt.Println(qbt.NormalizeState(qbt.TorrentStateStalledDL))
	// Output:
	// paused
	// unknown
}
