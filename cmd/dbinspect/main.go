// Package main provides a read-only inspection tool for the database.
//
// It prints record counts per entity and a short catalog summary, which is
// handy when debugging grant or file-ownership issues on a live data
// directory.
//
// Usage:
//
//	DATA_PATH=~/SchoolHub/data go run ./cmd/dbinspect
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/schoolhub/schoolhub-server/internal/domain"
)

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/SchoolHub/data")
	}
	dbPath := dataPath + "/db"

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	for _, prefix := range []string{"user:", "book:", "news:", "staff:", "gallery:", "session:"} {
		records, indexes := countPrefix(db, prefix)
		fmt.Printf("%-10s %4d records, %d index entries\n", strings.TrimSuffix(prefix, ":"), records, indexes)
	}

	fmt.Println()
	fmt.Println("=== Catalog ===")
	printBooks(db)
}

// countPrefix counts records and index entries under an entity prefix.
// Index keys look like {prefix}idx:{name}:{value}.
func countPrefix(db *badger.DB, prefix string) (records, indexes int) {
	_ = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			key := string(it.Item().Key())
			if strings.HasPrefix(key, prefix+"idx:") {
				indexes++
			} else {
				records++
			}
		}
		return nil
	})
	return records, indexes
}

// printBooks lists every book with its grants-relevant fields.
func printBooks(db *badger.DB) {
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("book:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte("book:")); it.ValidForPrefix([]byte("book:")); it.Next() {
			item := it.Item()
			if strings.HasPrefix(string(item.Key()), "book:idx:") {
				continue
			}

			err := item.Value(func(val []byte) error {
				var book domain.Book
				if err := json.Unmarshal(val, &book); err != nil {
					return err
				}

				fmt.Printf("Book %d: %s\n", book.BookID, book.Title)
				if len(book.Tags) > 0 {
					fmt.Printf("  Tags:  %s\n", strings.Join(book.Tags, ", "))
				}
				fmt.Printf("  PDF:   %s (file id %s)\n", book.PDFPath, book.PDFFileID)
				if book.CoverPath != "" {
					fmt.Printf("  Cover: %s (file id %s)\n", book.CoverPath, book.CoverFileID)
				}
				return nil
			})
			if err != nil {
				log.Printf("Error reading book %s: %v", item.Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}
}
