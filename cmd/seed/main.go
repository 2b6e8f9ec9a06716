// Package main provides a tool to seed the database with sample content.
//
// It creates an admin account, a few student accounts with different
// library grants, sample books with placeholder PDFs, and some public
// site content. Useful for trying out the API and frontend locally.
//
// Usage:
//
//	DATA_PATH=~/SchoolHub/data MEDIA_PATH=~/SchoolHub/media go run ./cmd/seed
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/schoolhub/schoolhub-server/internal/auth"
	"github.com/schoolhub/schoolhub-server/internal/files"
	"github.com/schoolhub/schoolhub-server/internal/logger"
	"github.com/schoolhub/schoolhub-server/internal/ratelimit"
	"github.com/schoolhub/schoolhub-server/internal/search"
	"github.com/schoolhub/schoolhub-server/internal/service"
	"github.com/schoolhub/schoolhub-server/internal/store"
	"github.com/schoolhub/schoolhub-server/internal/validation"
)

type sampleBook struct {
	title    string
	author   string
	language string
	tags     []string
}

var sampleBooks = []sampleBook{
	{"Algebra Basics", "R. Patel", "en", []string{"math"}},
	{"Geometry Workbook", "R. Patel", "en", []string{"math"}},
	{"Introduction to Physics", "M. Okafor", "en", []string{"science"}},
	{"Chemistry Lab Manual", "M. Okafor", "en", []string{"science"}},
	{"A History of Europe", "L. Fischer", "en", []string{"history"}},
	{"Latin Primer", "C. Brown", "la", []string{"languages"}},
}

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/SchoolHub/data")
	}
	mediaPath := os.Getenv("MEDIA_PATH")
	if mediaPath == "" {
		mediaPath = os.ExpandEnv("$HOME/SchoolHub/media")
	}

	fmt.Printf("Data path:  %s\n", dataPath)
	fmt.Printf("Media path: %s\n", mediaPath)

	log := logger.Discard().Logger

	st, err := store.New(dataPath+"/db", log)
	if err != nil {
		stdlog.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	storage, err := files.NewStorage(mediaPath)
	if err != nil {
		stdlog.Fatalf("Failed to open media storage: %v", err)
	}

	index, err := search.NewBookIndex(dataPath, log)
	if err != nil {
		stdlog.Fatalf("Failed to open search index: %v", err)
	}
	defer index.Close()

	key, err := auth.LoadOrGenerateKey(dataPath)
	if err != nil {
		stdlog.Fatalf("Failed to load auth key: %v", err)
	}
	tokens, err := auth.NewTokenService(hex.EncodeToString(key), 15*time.Minute, 30*24*time.Hour)
	if err != nil {
		stdlog.Fatalf("Failed to create token service: %v", err)
	}

	limiter := ratelimit.New(100, 100)
	defer limiter.Stop()
	v := validation.New()

	authService := service.NewAuthService(st, tokens, v, limiter, log)
	userService := service.NewUserService(st, v, log)
	bookService := service.NewBookService(st, storage, index, v, log)
	newsService := service.NewNewsService(st, v, log)
	staffService := service.NewStaffService(st, storage, v, log)

	ctx := context.Background()

	// Admin account, if this is a fresh database.
	result, err := authService.Setup(ctx, service.SetupRequest{
		Email:       "admin@school.example",
		Password:    "admin-password",
		DisplayName: "Administrator",
	})
	if err != nil {
		fmt.Printf("Setup skipped: %v\n", err)
	} else {
		fmt.Printf("Created admin: %s\n", result.User.Email)
	}

	// Books with placeholder PDFs.
	for _, b := range sampleBooks {
		pdf := &service.Upload{
			Reader:   strings.NewReader("%PDF-1.4\n% placeholder: " + b.title + "\n"),
			Filename: "book.pdf",
		}
		book, err := bookService.CreateBook(ctx, service.BookMetadata{
			Title:    b.title,
			Author:   b.author,
			Language: b.language,
			Tags:     b.tags,
		}, pdf, nil)
		if err != nil {
			stdlog.Fatalf("Failed to create book %q: %v", b.title, err)
		}
		fmt.Printf("Created book %d: %s [%s]\n", book.BookID, book.Title, strings.Join(book.Tags, ", "))
	}

	// Student accounts with different grant shapes.
	students := []service.CreateUserRequest{
		{
			Email: "maths@school.example", Password: "student-password",
			DisplayName: "Maths Student", Role: "user",
			Permissions: service.PermissionsRequest{Tags: []string{"math"}},
		},
		{
			Email: "sciences@school.example", Password: "student-password",
			DisplayName: "Science Student", Role: "user",
			Permissions: service.PermissionsRequest{Tags: []string{"math", "science"}},
		},
		{
			Email: "single@school.example", Password: "student-password",
			DisplayName: "One Book Student", Role: "user",
			Permissions: service.PermissionsRequest{Books: []string{"1"}},
		},
		{
			Email: "library@school.example", Password: "student-password",
			DisplayName: "Full Library Student", Role: "user",
			Permissions: service.PermissionsRequest{Books: []string{"all"}},
		},
	}
	for _, req := range students {
		user, err := userService.CreateUser(ctx, req)
		if err != nil {
			fmt.Printf("Skipped user %s: %v\n", req.Email, err)
			continue
		}
		fmt.Printf("Created user: %s\n", user.Email)
	}

	// Public site content.
	articles := []service.NewsRequest{
		{Title: "Term Dates Announced", Body: "<p>The new term starts on <strong>Monday</strong>.</p>", Publish: true},
		{Title: "Sports Day Results", Body: "<h2>Results</h2><p>Blue house wins.</p>", Publish: true},
		{Title: "Library Opening Hours", Body: "<p>Open until 5pm on weekdays.</p>"},
	}
	for _, req := range articles {
		item, err := newsService.CreateNews(ctx, "seed", req)
		if err != nil {
			fmt.Printf("Skipped article %q: %v\n", req.Title, err)
			continue
		}
		fmt.Printf("Created article: %s (/%s)\n", item.Title, item.Slug)
	}

	staff := []service.StaffRequest{
		{Name: "R. Patel", Subject: "Mathematics", Position: "Head of Maths"},
		{Name: "M. Okafor", Subject: "Physics and Chemistry"},
		{Name: "L. Fischer", Subject: "History", Position: "Deputy Head"},
	}
	for _, req := range staff {
		member, err := staffService.CreateStaff(ctx, req, nil)
		if err != nil {
			fmt.Printf("Skipped staff member %q: %v\n", req.Name, err)
			continue
		}
		fmt.Printf("Created staff member: %s\n", member.Name)
	}

	fmt.Println("\nSeed complete.")
}
