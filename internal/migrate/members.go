// Package migrate moves the team and board member pages into the remote
// database, portraits included.
package migrate

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/timoparlison/febiscrawler/internal/crawler"
	"github.com/timoparlison/febiscrawler/internal/slug"
)

// TeamParser parses the administration page.
type TeamParser interface {
	Parse(html string) ([]crawler.TeamMember, error)
}

// BoardParser parses the executive board page.
type BoardParser interface {
	Parse(html string) ([]crawler.BoardMember, error)
}

// TeamMigrator replaces the team_members table from the administration
// page. The page sits behind the members login, so it fetches through the
// authenticated session.
type TeamMigrator struct {
	session   crawler.Session
	parser    TeamParser
	store     crawler.EventStore
	portraits *portraitUploader
	fs        afero.Fs
	outputDir string
	pageURL   string
	logger    *zap.Logger
}

// NewTeamMigrator wires a TeamMigrator. blobStore must point at the team
// portrait bucket.
func NewTeamMigrator(session crawler.Session, parser TeamParser, store crawler.EventStore, blobStore crawler.BlobStore, client *resty.Client, fs afero.Fs, outputDir, pageURL string, maxRetries int, backoffBase time.Duration, logger *zap.Logger) *TeamMigrator {
	return &TeamMigrator{
		session:   session,
		parser:    parser,
		store:     store,
		portraits: newPortraitUploader(client, blobStore, maxRetries, backoffBase, logger),
		fs:        fs,
		outputDir: outputDir,
		pageURL:   pageURL,
		logger:    logger,
	}
}

// Migrate fetches, parses and inserts the team roster. With force the
// existing rows are deleted first.
func (m *TeamMigrator) Migrate(ctx context.Context, force bool) error {
	m.logger.Info("fetching administration page", zap.String("url", m.pageURL))
	html, err := m.session.FetchPage(ctx, m.pageURL)
	if err != nil {
		return err
	}
	if err := saveDebugHTML(m.fs, m.outputDir, "administration.html", html, m.logger); err != nil {
		return err
	}

	members, err := m.parser.Parse(html)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		m.logger.Warn("no team members found on page")
		return nil
	}
	for _, member := range members {
		m.logger.Info("found team member",
			zap.String("name", member.Name),
			zap.String("role", member.Role),
		)
	}

	if force {
		m.logger.Info("deleting existing team members")
		if err := m.store.DeleteAllMembers(ctx, "team_members"); err != nil {
			return err
		}
	}

	imageURLs := make(map[string]string, len(members))
	for _, member := range members {
		if member.ImageURL == "" {
			continue
		}
		publicURL := m.portraits.upload(ctx, member.ImageURL, slug.Make(member.Name)+".jpg", member.Name)
		if publicURL != "" {
			imageURLs[member.ImageURL] = publicURL
		}
	}

	if err := m.store.InsertTeamMembers(ctx, members, imageURLs); err != nil {
		return err
	}
	m.logger.Info("team members migrated", zap.Int("count", len(members)))
	return nil
}

// BoardMigrator replaces the board_members table from the public executive
// board page. No login is required, so it fetches with a plain client.
type BoardMigrator struct {
	client    *resty.Client
	parser    BoardParser
	store     crawler.EventStore
	portraits *portraitUploader
	fs        afero.Fs
	outputDir string
	pageURL   string
	logger    *zap.Logger
}

// NewBoardMigrator wires a BoardMigrator. blobStore must point at the board
// portrait bucket.
func NewBoardMigrator(client *resty.Client, parser BoardParser, store crawler.EventStore, blobStore crawler.BlobStore, fs afero.Fs, outputDir, pageURL string, maxRetries int, backoffBase time.Duration, logger *zap.Logger) *BoardMigrator {
	return &BoardMigrator{
		client:    client,
		parser:    parser,
		store:     store,
		portraits: newPortraitUploader(client, blobStore, maxRetries, backoffBase, logger),
		fs:        fs,
		outputDir: outputDir,
		pageURL:   pageURL,
		logger:    logger,
	}
}

// Migrate fetches, parses and inserts the board roster. With force the
// existing rows are deleted first.
func (m *BoardMigrator) Migrate(ctx context.Context, force bool) error {
	m.logger.Info("fetching executive board page", zap.String("url", m.pageURL))
	resp, err := m.client.R().SetContext(ctx).Get(m.pageURL)
	if err != nil {
		return &crawler.NetworkError{URL: m.pageURL, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return &crawler.NetworkError{URL: m.pageURL, Status: resp.StatusCode()}
	}
	html := resp.String()
	if err := saveDebugHTML(m.fs, m.outputDir, "executive-board.html", html, m.logger); err != nil {
		return err
	}

	members, err := m.parser.Parse(html)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		m.logger.Warn("no board members found on page")
		return nil
	}
	for _, member := range members {
		m.logger.Info("found board member",
			zap.String("name", member.Name),
			zap.String("role", member.Role),
			zap.String("company", member.Company),
		)
	}

	if force {
		m.logger.Info("deleting existing board members")
		if err := m.store.DeleteAllMembers(ctx, "board_members"); err != nil {
			return err
		}
	}

	imageURLs := make(map[string]string, len(members))
	for _, member := range members {
		if member.ImageURL == "" {
			continue
		}
		publicURL := m.portraits.upload(ctx, member.ImageURL, slug.Make(member.Name)+".jpg", member.Name)
		if publicURL != "" {
			imageURLs[member.ImageURL] = publicURL
		}
	}

	if err := m.store.InsertBoardMembers(ctx, members, imageURLs); err != nil {
		return err
	}
	m.logger.Info("board members migrated", zap.Int("count", len(members)))
	return nil
}

// portraitUploader streams one portrait from the source site into the blob
// store with bounded retry. A portrait that cannot be moved is skipped, the
// member row then carries no image.
type portraitUploader struct {
	client      *resty.Client
	store       crawler.BlobStore
	maxRetries  int
	backoffBase time.Duration
	logger      *zap.Logger
}

func newPortraitUploader(client *resty.Client, store crawler.BlobStore, maxRetries int, backoffBase time.Duration, logger *zap.Logger) *portraitUploader {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if backoffBase <= 0 {
		backoffBase = 400 * time.Millisecond
	}
	return &portraitUploader{
		client:      client,
		store:       store,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		logger:      logger,
	}
}

func (u *portraitUploader) upload(ctx context.Context, imageURL, objectPath, memberName string) string {
	var publicURL string
	err := retry.Do(
		func() error {
			resp, err := u.client.R().SetContext(ctx).Get(imageURL)
			if err != nil {
				return &crawler.NetworkError{URL: imageURL, Err: err}
			}
			if resp.StatusCode() != http.StatusOK {
				return &crawler.NetworkError{URL: imageURL, Status: resp.StatusCode()}
			}
			url, err := u.store.Upload(ctx, objectPath, "image/jpeg", resp.Body())
			if err != nil {
				return err
			}
			publicURL = url
			return nil
		},
		retry.Attempts(uint(u.maxRetries)),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return time.Duration(n+1) * u.backoffBase
		}),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			u.logger.Warn("portrait upload failed, retrying",
				zap.String("member", memberName),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		u.logger.Error("portrait upload failed, member keeps no image",
			zap.String("member", memberName),
			zap.String("url", imageURL),
			zap.Error(err),
		)
		return ""
	}
	u.logger.Info("portrait uploaded",
		zap.String("member", memberName),
		zap.String("public_url", publicURL),
	)
	return publicURL
}

// saveDebugHTML keeps the raw page next to the archive so parser changes
// can be tested against what was actually served.
func saveDebugHTML(fs afero.Fs, outputDir, filename, html string, logger *zap.Logger) error {
	debugDir := filepath.Join(outputDir, "debug")
	if err := fs.MkdirAll(debugDir, 0o750); err != nil {
		return fmt.Errorf("create debug dir: %w", err)
	}
	target := filepath.Join(debugDir, filename)
	if err := afero.WriteFile(fs, target, []byte(html), 0o640); err != nil {
		return fmt.Errorf("write debug html: %w", err)
	}
	logger.Debug("saved page html", zap.String("path", target))
	return nil
}
