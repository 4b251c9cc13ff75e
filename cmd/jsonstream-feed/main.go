// Command jsonstream-feed dials one or more JSON feeds and prints each
// located token as it arrives. Event-streams are fetched with an
// OAuth2-authenticated HTTP client; sockets are dialed with
// websocket.DefaultDialer and no credentials. With --config it
// reads a source.Config listing several named streams and dials each
// in turn by its Kind; otherwise it dials the single endpoint named by
// JSONSTREAM_FEED_URL as an event-stream. Either way, this program's
// only job is to open the connection: the resulting handle is handed
// to the matching source adapter unwrapped.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/flitsinc/jsonstream/chunk"
	"github.com/flitsinc/jsonstream/source"
	"github.com/flitsinc/jsonstream/stream"
)

func init() {
	godotenv.Overload()
}

func main() {
	configPath := flag.String("config", "", "path to a YAML source.Config listing named streams to dial")
	flag.Parse()

	var err error
	if *configPath != "" {
		err = runConfig(*configPath)
	} else {
		err = runSingle()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "jsonstream-feed:", err)
		os.Exit(1)
	}
}

// runConfig dials every stream named in the config file in turn,
// choosing the connection strategy from each entry's Kind.
func runConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	cfg, err := source.LoadConfig(data)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client := authenticatedClient(ctx)

	for _, sc := range cfg.Streams {
		fmt.Printf("=== %s (%s) ===\n", sc.Name, sc.Kind)
		if err := dialAndPrint(ctx, client, sc); err != nil {
			fmt.Fprintf(os.Stderr, "jsonstream-feed: %s: %v\n", sc.Name, err)
		}
	}
	return nil
}

// dialAndPrint opens sc.URL the way its Kind requires and streams the
// located tokens to stdout.
func dialAndPrint(ctx context.Context, client *http.Client, sc source.StreamConfig) error {
	switch sc.Kind {
	case "event-stream":
		resp, err := getEventStream(ctx, client, sc.URL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		return runStream(ctx, resp.Body)
	case "socket":
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, sc.URL, nil)
		if err != nil {
			return fmt.Errorf("dialing socket: %w", err)
		}
		defer conn.Close()
		return runStream(ctx, conn)
	default:
		return fmt.Errorf("kind %q is not network-dialable by this demo", sc.Kind)
	}
}

// runSingle dials JSONSTREAM_FEED_URL as a single event-stream, for
// quick one-off use without a config file.
func runSingle() error {
	feedURL := os.Getenv("JSONSTREAM_FEED_URL")
	if feedURL == "" {
		return fmt.Errorf("JSONSTREAM_FEED_URL is not set")
	}

	ctx := context.Background()
	client := authenticatedClient(ctx)

	resp, err := getEventStream(ctx, client, feedURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return runStream(ctx, resp.Body)
}

func getEventStream(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dialing feed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("feed returned status %s", resp.Status)
	}
	return resp, nil
}

// runStream feeds an already-open handle to stream.Parse and prints
// every record until the stream ends.
func runStream(ctx context.Context, handle any) error {
	s, err := stream.Parse(ctx, handle)
	if err != nil {
		return err
	}
	defer s.Stop()

	for rec := range s.Records() {
		printRecord(rec)
	}
	return s.Err()
}

// authenticatedClient returns an http.Client that attaches an OAuth2
// bearer token to every request, using client-credentials if
// JSONSTREAM_OAUTH_CLIENT_ID is configured, or a single static token
// from JSONSTREAM_OAUTH_TOKEN otherwise.
func authenticatedClient(ctx context.Context) *http.Client {
	if clientID := os.Getenv("JSONSTREAM_OAUTH_CLIENT_ID"); clientID != "" {
		cfg := clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: os.Getenv("JSONSTREAM_OAUTH_CLIENT_SECRET"),
			TokenURL:     os.Getenv("JSONSTREAM_OAUTH_TOKEN_URL"),
		}
		return cfg.Client(ctx)
	}

	token := os.Getenv("JSONSTREAM_OAUTH_TOKEN")
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return oauth2.NewClient(ctx, src)
}

func printRecord(rec chunk.Record) {
	fmt.Printf("%-12s %-10q path=%s pointer=%s\n", rec.Type, rec.Value, rec.Path(), rec.Pointer())
}
