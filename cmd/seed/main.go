// seed inserts development sample identities for local testing.
// Idempotent: skips inserts when the dev account (dev@example.com) already
// exists.
package main

import (
	"context"
	"log"

	"identity-plane/internal/config"
	"identity-plane/internal/db"
	"identity-plane/internal/identity/domain"
	"identity-plane/internal/identity/repository"
	"identity-plane/internal/security"
)

const (
	devPrimaryEmail   = "dev@example.com"
	devSecondaryEmail = "dev-secondary@example.com"
	devFederatedEmail = "dev-federated@example.com"
	devPassword       = "password123"
	devExternalID     = "dev-external-001"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	repo := repository.NewPostgresRepository(conn)

	existing, err := repo.FindByEmail(ctx, devPrimaryEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	classifier := domain.NewSentinelClassifier(cfg.PrimaryAffiliationCode)

	primaryCode, err := domain.NewAffiliationCode(cfg.PrimaryAffiliationCode)
	if err != nil {
		log.Fatalf("primary affiliation code: %v", err)
	}

	seedCredential(ctx, repo, hasher, classifier, "Dev Primary", devPrimaryEmail, &primaryCode)
	seedCredential(ctx, repo, hasher, classifier, "Dev Secondary", devSecondaryEmail, nil)
	seedFederated(ctx, repo, hasher, classifier, "Dev Federated", devFederatedEmail, devExternalID)

	log.Println("Seed complete.")
}

func seedCredential(ctx context.Context, repo repository.Repository, hasher *security.Hasher, classifier domain.Classifier, name, email string, code *domain.AffiliationCode) {
	dn, err := domain.NewDisplayName(name)
	if err != nil {
		log.Fatalf("seed %s: %v", email, err)
	}
	em, err := domain.NewEmailAddress(email)
	if err != nil {
		log.Fatalf("seed %s: %v", email, err)
	}
	identity, err := domain.NewWithCredential(hasher, classifier, dn, em, devPassword, code)
	if err != nil {
		log.Fatalf("seed %s: %v", email, err)
	}
	identity.DrainEvents() // seed data produces no notifications
	if err := repo.Create(ctx, identity); err != nil {
		log.Fatalf("seed %s: %v", email, err)
	}
	log.Printf("seeded %s (%s)", email, identity.Role)
}

func seedFederated(ctx context.Context, repo repository.Repository, hasher *security.Hasher, classifier domain.Classifier, name, email, externalID string) {
	dn, err := domain.NewDisplayName(name)
	if err != nil {
		log.Fatalf("seed %s: %v", email, err)
	}
	em, err := domain.NewEmailAddress(email)
	if err != nil {
		log.Fatalf("seed %s: %v", email, err)
	}
	ext, err := domain.NewExternalID(externalID)
	if err != nil {
		log.Fatalf("seed %s: %v", email, err)
	}
	identity, err := domain.NewWithExternalIdentity(hasher, classifier, dn, em, nil, ext)
	if err != nil {
		log.Fatalf("seed %s: %v", email, err)
	}
	identity.DrainEvents()
	if err := repo.Create(ctx, identity); err != nil {
		log.Fatalf("seed %s: %v", email, err)
	}
	log.Printf("seeded %s (federated)", email)
}
