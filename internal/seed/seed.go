// Package seed fills a store with demo profiles, posts and engagement by
// driving the same services the API uses.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"time"

	"pawfeed/internal/blob"
	"pawfeed/internal/middleware"
	"pawfeed/internal/models"
	"pawfeed/internal/repository"
	"pawfeed/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// Options sizes a seeding run.
type Options struct {
	NumProfiles int
	NumPosts    int
	MaxLikes    int
	MaxComments int
}

// Summary counts what a run created.
type Summary struct {
	Profiles []models.Profile
	Posts    int
	Likes    int
	Comments int
}

// Seeder builds demo content.
type Seeder struct {
	profiles repository.ProfileRepository
	posts    *service.PostService
	engine   *service.InteractionEngine
	faker    *gofakeit.Faker
}

// NewSeeder creates a seeder. The same seed yields the same content.
func NewSeeder(profiles repository.ProfileRepository, posts *service.PostService, engine *service.InteractionEngine, seed int64) *Seeder {
	return &Seeder{
		profiles: profiles,
		posts:    posts,
		engine:   engine,
		faker:    gofakeit.New(seed),
	}
}

// Run creates profiles, then posts spread across them, then likes and
// comments from random profiles.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	profiles, err := s.SeedProfiles(ctx, opts.NumProfiles)
	if err != nil {
		return nil, err
	}
	posts, err := s.SeedPosts(ctx, profiles, opts.NumPosts)
	if err != nil {
		return nil, err
	}
	likes, comments, err := s.SeedEngagement(ctx, profiles, posts, opts.MaxLikes, opts.MaxComments)
	if err != nil {
		return nil, err
	}

	middleware.Logger.Info("seed complete",
		slog.Int("profiles", len(profiles)),
		slog.Int("posts", len(posts)),
		slog.Int("likes", likes),
		slog.Int("comments", comments),
	)
	return &Summary{Profiles: profiles, Posts: len(posts), Likes: likes, Comments: comments}, nil
}

// SeedProfiles creates n pet profiles.
func (s *Seeder) SeedProfiles(ctx context.Context, n int) ([]models.Profile, error) {
	out := make([]models.Profile, 0, n)
	for i := 0; i < n; i++ {
		p := models.Profile{
			ID:        uuid.NewString(),
			Name:      s.faker.PetName(),
			Avatar:    fmt.Sprintf("https://placedog.net/150?id=%d", s.faker.Number(1, 200)),
			CreatedAt: s.faker.DateRange(time.Now().AddDate(-1, 0, 0), time.Now()).UTC(),
		}
		if err := s.profiles.Upsert(ctx, &p); err != nil {
			return nil, fmt.Errorf("seed profile %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// SeedPosts creates n posts with generated images, authored round-robin.
func (s *Seeder) SeedPosts(ctx context.Context, authors []models.Profile, n int) ([]models.Post, error) {
	if len(authors) == 0 {
		return nil, nil
	}
	out := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := authors[i%len(authors)]
		img, err := s.image()
		if err != nil {
			return nil, err
		}
		post, err := s.posts.CreatePost(ctx, service.CreatePostInput{
			AuthorID: author.ID,
			Caption:  s.caption(),
			Image: &blob.Upload{
				OwnerID:     author.ID,
				Filename:    "seed.png",
				ContentType: "image/png",
				Content:     img,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("seed post %d: %w", i, err)
		}
		out = append(out, *post)
	}
	return out, nil
}

// SeedEngagement gives each post up to maxLikes likes and maxComments
// comments from distinct random profiles.
func (s *Seeder) SeedEngagement(ctx context.Context, profiles []models.Profile, posts []models.Post, maxLikes, maxComments int) (likes, comments int, err error) {
	if len(profiles) == 0 {
		return 0, 0, nil
	}
	for _, post := range posts {
		for _, i := range s.pick(len(profiles), maxLikes) {
			action, err := s.engine.ToggleLike(ctx, post.ID, profiles[i].ID)
			if err != nil {
				return likes, comments, fmt.Errorf("seed like: %w", err)
			}
			if action == models.ActionLiked {
				likes++
			}
		}
		for _, i := range s.pick(len(profiles), maxComments) {
			text := s.faker.Sentence(s.faker.Number(3, 12))
			if _, err := s.engine.AddComment(ctx, post.ID, profiles[i].ID, text); err != nil {
				return likes, comments, fmt.Errorf("seed comment: %w", err)
			}
			comments++
		}
	}
	return likes, comments, nil
}

// pick returns up to limit distinct indexes below n.
func (s *Seeder) pick(n, limit int) []int {
	if limit <= 0 {
		return nil
	}
	k := s.faker.Number(0, min(limit, n))
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	s.faker.ShuffleInts(idx)
	return idx[:k]
}

func (s *Seeder) caption() string {
	switch s.faker.Number(0, 2) {
	case 0:
		return ""
	case 1:
		return s.faker.Sentence(s.faker.Number(4, 14))
	default:
		return fmt.Sprintf("%s #%s", s.faker.Sentence(s.faker.Number(3, 8)), s.faker.Animal())
	}
}

// image renders a small solid PNG in one of the accepted aspect ratios.
func (s *Seeder) image() ([]byte, error) {
	sizes := [][2]int{{191, 100}, {120, 120}, {96, 120}}
	size := sizes[s.faker.Number(0, len(sizes)-1)]
	img := image.NewRGBA(image.Rect(0, 0, size[0], size[1]))
	fill := color.RGBA{R: s.faker.Uint8(), G: s.faker.Uint8(), B: s.faker.Uint8(), A: 255}
	for y := 0; y < size[1]; y++ {
		for x := 0; x < size[0]; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode seed image: %w", err)
	}
	return buf.Bytes(), nil
}
