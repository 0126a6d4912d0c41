// File: cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"chatanon/internal/config"
	pg "chatanon/internal/infra/db/postgres"
)

// Seeds a minimal catalog for local development: one model endpoint, one
// role with a category background and an avatar with expressions.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	catalog := pg.NewCatalogRepo(pool)
	if models, err := catalog.ListModelConfigs(ctx); err != nil {
		log.Fatalf("list models: %v", err)
	} else if len(models) > 0 {
		fmt.Printf("%d models already present. No changes.\n", len(models))
		return
	}

	var modelID int64
	err = pool.QueryRow(ctx,
		`INSERT INTO models (model_name, model_version, api_url, api_key, max_tokens)
		 VALUES ($1, $2, $3, $4, $5) RETURNING model_id`,
		"default-chat", "gpt-4o-mini", "https://api.openai.com/v1/chat/completions", "replace-me", 2048,
	).Scan(&modelID)
	if err != nil {
		log.Fatalf("seed model: %v", err)
	}
	fmt.Printf("seeded model: default-chat (id=%d)\n", modelID)

	var roleID int64
	err = pool.QueryRow(ctx,
		`INSERT INTO roles (role_name, prompt) VALUES ($1, $2) RETURNING role_id`,
		"Nico", "You are Nico, a warm and curious companion. Stay in character.",
	).Scan(&roleID)
	if err != nil {
		log.Fatalf("seed role: %v", err)
	}

	var categoryID int64
	err = pool.QueryRow(ctx,
		`INSERT INTO role_categories (category_name, background_prompt) VALUES ($1, $2) RETURNING role_tag_id`,
		"companion", "The conversation takes place in a cozy seaside town.",
	).Scan(&categoryID)
	if err != nil {
		log.Fatalf("seed category: %v", err)
	}
	if _, err := pool.Exec(ctx,
		`INSERT INTO role_category_links (role_id, role_tag_id) VALUES ($1, $2)`,
		roleID, categoryID,
	); err != nil {
		log.Fatalf("link category: %v", err)
	}
	fmt.Printf("seeded role: Nico (id=%d)\n", roleID)

	var avatarID int64
	err = pool.QueryRow(ctx,
		`INSERT INTO avatars (role_id, avatar_name, prompt) VALUES ($1, $2, $3) RETURNING avatar_id`,
		roleID, "Nico",
		"Classify the speaker's current emotion. Answer with exactly one word from: default, happy, sad, angry, surprised.",
	).Scan(&avatarID)
	if err != nil {
		log.Fatalf("seed avatar: %v", err)
	}

	expressions := []struct {
		Emotion    string
		Expression string
		Motion     string
	}{
		{"default", "expressions/idle.exp3.json", ""},
		{"happy", "expressions/happy.exp3.json", "motions/wave.motion3.json"},
		{"sad", "expressions/sad.exp3.json", ""},
		{"angry", "expressions/angry.exp3.json", ""},
		{"surprised", "expressions/surprised.exp3.json", ""},
	}
	for _, e := range expressions {
		if _, err := pool.Exec(ctx,
			`INSERT INTO avatar_actions (avatar_id, emotion, expression_path, motion_path) VALUES ($1, $2, $3, $4)`,
			avatarID, e.Emotion, e.Expression, e.Motion,
		); err != nil {
			log.Fatalf("seed expression %q: %v", e.Emotion, err)
		}
	}
	fmt.Printf("seeded avatar with %d expressions (id=%d)\n", len(expressions), avatarID)

	fmt.Println("Seeding complete.")
}
