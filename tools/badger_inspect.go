package main

import (
	"chat-presence/domain"
	"chat-presence/repositories"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	width := flag.Int("width", 40, "Maximum width of the text column")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Created", "Sender", "Receiver", "Text", "Image"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	repository := repositories.NewMessageRepository(db, slog.Default(), nil)
	err = repository.Walk(context.Background(), func(key string, message domain.Message, err error) error {
		if err != nil {
			// Keep going, one bad value shouldn't hide the rest
			fmt.Printf("Error decoding key %s: %v\n", key, err)
			return nil
		}
		table.Append([]string{
			shorten(key, 32),
			message.CreatedAt.Format("2006-01-02 15:04:05"),
			message.SenderID.String(),
			message.ReceiverID.String(),
			shorten(message.Text, *width),
			imageSummary(message.Image),
		})
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func shorten(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if max > 3 && len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

// imageSummary prints the media type and size instead of the whole data URL.
func imageSummary(dataURL string) string {
	if dataURL == "" {
		return ""
	}
	header, payload, found := strings.Cut(dataURL, ",")
	if !found {
		return "invalid"
	}
	mediaType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	return fmt.Sprintf("%s (%d B)", mediaType, len(payload)*3/4)
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return db, nil
}
