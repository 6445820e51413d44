// seed inserts development sample data for local testing. Run via ./scripts/seed.sh.
// Idempotent: skips inserts if the dev owner (owner@example.com) already exists.
// Prints a short-lived access token per seeded user when JWT_PRIVATE_KEY is set.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"organizer-team/backend/internal/config"
	"organizer-team/backend/internal/db"
	membershipdomain "organizer-team/backend/internal/membership/domain"
	membershiprepo "organizer-team/backend/internal/membership/repository"
	organizerdomain "organizer-team/backend/internal/organizer/domain"
	organizerrepo "organizer-team/backend/internal/organizer/repository"
	policydomain "organizer-team/backend/internal/policy/domain"
	policyrepo "organizer-team/backend/internal/policy/repository"
	"organizer-team/backend/internal/security"
	userdomain "organizer-team/backend/internal/user/domain"
	userrepo "organizer-team/backend/internal/user/repository"
)

// samplePolicy blocks promotions to owner on weekends; disabled by default.
const samplePolicy = `package organizer.team

deny contains "owner changes are only allowed on weekdays" if {
	input.capability == "update_role"
	input.new_role == "owner"
	time.weekday(time.now_ns()) in {"Saturday", "Sunday"}
}
`

const (
	devOrganizerID   = "dev-organizer-001"
	devOwnerID       = "dev-user-001"
	devManagerID     = "dev-user-002"
	devOwnerEmail    = "owner@example.com"
	devManagerEmail  = "manager@example.com"
	devOwnerMember   = "dev-member-001"
	devManagerMember = "dev-member-002"
	devPolicyID      = "dev-policy-001"
	devPassword      = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	conn, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	organizers := organizerrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)
	policies := policyrepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, devOwnerEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (owner@example.com exists). Skipping.")
		printTokens(cfg)
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()

	for _, u := range []*userdomain.User{
		{ID: devOwnerID, Email: devOwnerEmail, Name: "Dev Owner"},
		{ID: devManagerID, Email: devManagerEmail, Name: "Dev Manager"},
	} {
		u.PasswordHash = passwordHash
		u.EmailVerified = true
		u.Status = userdomain.UserStatusActive
		u.CreatedAt, u.UpdatedAt = now, now
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create user %s: %v", u.Email, err)
		}
	}

	if err := organizers.Create(ctx, &organizerdomain.Organizer{
		ID:        devOrganizerID,
		Name:      "Acme Events",
		Status:    organizerdomain.OrganizerStatusActive,
		CreatedAt: now,
	}); err != nil {
		log.Fatalf("create organizer: %v", err)
	}

	err = memberships.InTx(ctx, func(ctx context.Context, tx membershiprepo.Tx) error {
		for _, m := range []*membershipdomain.Membership{
			{ID: devOwnerMember, UserID: devOwnerID, Role: membershipdomain.RoleOwner},
			{ID: devManagerMember, UserID: devManagerID, Role: membershipdomain.RoleManager, InvitedBy: devOwnerID},
		} {
			m.OrganizerID = devOrganizerID
			m.IsActive = true
			m.JoinedAt, m.CreatedAt, m.UpdatedAt = now, now, now
			m.InvitationAcceptedAt = &now
			if err := tx.Insert(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("create memberships: %v", err)
	}

	if err := policies.Create(ctx, &policydomain.Policy{
		ID:          devPolicyID,
		OrganizerID: devOrganizerID,
		Name:        "weekday owner changes",
		Rules:       samplePolicy,
		Enabled:     false,
		CreatedAt:   now,
	}); err != nil {
		log.Fatalf("create policy: %v", err)
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Organizer: %s\n", devOrganizerID)
	fmt.Printf("Owner login: %s / %s\n", devOwnerEmail, devPassword)
	fmt.Printf("Manager login: %s / %s\n", devManagerEmail, devPassword)
	printTokens(cfg)
}

func printTokens(cfg *config.Config) {
	if cfg.JWTPrivateKey == "" {
		return
	}
	signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt keys: %v", err)
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	for _, userID := range []string{devOwnerID, devManagerID} {
		token, _, expiresAt, err := tokens.IssueAccess("seed-"+userID, userID)
		if err != nil {
			log.Fatalf("issue token: %v", err)
		}
		fmt.Printf("Access token for %s (expires %s):\n%s\n", userID, expiresAt.Format(time.RFC3339), token)
	}
}
