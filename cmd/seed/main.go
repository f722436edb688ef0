// Command seed populates the configured store with demo pet profiles, posts,
// likes and comments, and prints tokens for a few of the profiles.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"pawfeed/internal/bootstrap"
	"pawfeed/internal/cache"
	"pawfeed/internal/config"
	"pawfeed/internal/identity"
	"pawfeed/internal/seed"
	"pawfeed/internal/service"
)

func main() {
	numProfiles := flag.Int("profiles", 20, "Number of profiles to create")
	numPosts := flag.Int("posts", 60, "Number of posts to create")
	maxLikes := flag.Int("max-likes", 8, "Maximum likes per post")
	maxComments := flag.Int("max-comments", 4, "Maximum comments per post")
	numTokens := flag.Int("tokens", 3, "Print bearer tokens for this many profiles")
	randSeed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() {
		if err := rt.Close(ctx); err != nil {
			log.Printf("Runtime shutdown error: %v", err)
		}
	}()

	c := cache.New(rt.Redis)
	postSvc := service.NewPostService(rt.Posts, rt.Profiles, rt.Blobs, c, rt.Events)
	engine := service.NewInteractionEngine(rt.Posts, rt.Profiles, c, rt.Events)

	log.Printf("Target: %d profiles, %d posts, seed=%d", *numProfiles, *numPosts, *randSeed)
	summary, err := seed.NewSeeder(rt.Profiles, postSvc, engine, *randSeed).Run(ctx, seed.Options{
		NumProfiles: *numProfiles,
		NumPosts:    *numPosts,
		MaxLikes:    *maxLikes,
		MaxComments: *maxComments,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Created %d posts, %d likes, %d comments", summary.Posts, summary.Likes, summary.Comments)

	tokens := identity.NewProvider(cfg)
	for i, p := range summary.Profiles {
		if i >= *numTokens {
			break
		}
		tok, err := tokens.Issue(p.ID, 24*time.Hour)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		log.Printf("%s (%s): %s", p.Name, p.ID, tok)
	}
}
