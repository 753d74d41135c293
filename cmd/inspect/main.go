// Command inspect dumps the live or archive message store as a table.
// Useful to eyeball what a sweep relocated without spinning up the server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"

	"chat-server/repositories"
)

type config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
}

func main() {
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg: for live, arc: for archived)")
	flag.Parse()

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal("Error reading configuration: ", err)
	}

	db, err := badger.Open(badger.DefaultOptions(cfg.BadgerFilepath).
		WithReadOnly(true).WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Chat", "Sender", "Created", "Updated", "Content"})
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

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				var message repositories.DiskMessage
				if err := json.Unmarshal(v, &message); err != nil {
					// Log the bad record and keep going instead of stopping the whole dump
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}

				content := message.Content
				if len(content) > 48 {
					content = content[:48] + "..."
				}
				// Only the first 8 characters of identifiers, for readability
				chatID := message.ChatID
				if len(chatID) > 8 {
					chatID = chatID[:8]
				}

				table.Append([]string{
					string(item.Key()),
					chatID,
					message.Sender,
					message.At.Format("2006-01-02 15:04:05"),
					message.UpdatedAt.Format("2006-01-02 15:04:05"),
					content,
				})
				rows++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	color.Green.Printf("%d records under prefix %q\n", rows, *prefix)
	table.Render()
}
