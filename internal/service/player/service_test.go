package player_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"riichi-league/internal/model"
	"riichi-league/internal/service/player"
	appErr "riichi-league/pkg/errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*gorm.DB, *player.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.Player{}, &model.ActivityLog{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db, player.NewService(db)
}

func seedPlayer(t *testing.T, db *gorm.DB, discordID, name string) model.Player {
	t.Helper()
	p := model.Player{DiscordID: discordID, DisplayName: name, Status: "normal"}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed player failed: %v", err)
	}
	return p
}

func strPtr(s string) *string { return &s }

func TestGetProfile(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)
	seeded := seedPlayer(t, db, "discord-1", "mika")

	p, err := svc.GetProfile(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("get profile failed: %v", err)
	}
	if p.DisplayName != "mika" {
		t.Fatalf("unexpected profile: %+v", p)
	}

	if _, err := svc.GetProfile(ctx, seeded.ID+100); !errors.Is(err, appErr.ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
}

func TestUpdateProfileRejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)
	seedPlayer(t, db, "discord-1", "mika")
	other := seedPlayer(t, db, "discord-2", "joon")

	_, err := svc.UpdateProfile(ctx, other.ID, player.UpdateProfileRequest{DisplayName: strPtr("mika")})
	if !errors.Is(err, appErr.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, other.ID, player.UpdateProfileRequest{DisplayName: strPtr("joon2")})
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if updated.DisplayName != "joon2" {
		t.Fatalf("unexpected profile: %+v", updated)
	}
}

func TestLookupByName(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)
	seeded := seedPlayer(t, db, "discord-1", "mika")

	p, err := svc.LookupByName(ctx, "mika")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if p == nil || p.ID != seeded.ID {
		t.Fatalf("unexpected lookup result: %+v", p)
	}

	// A miss means the seat is a guest, not an error.
	p, err = svc.LookupByName(ctx, "stranger")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil for unknown name, got %+v", p)
	}
}

func TestAdminSetStatus(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)
	seeded := seedPlayer(t, db, "discord-1", "mika")

	banned, err := svc.AdminSetStatus(ctx, 7, seeded.ID, "banned", "collusion")
	if err != nil {
		t.Fatalf("ban failed: %v", err)
	}
	if banned.Status != "banned" {
		t.Fatalf("unexpected status: %+v", banned)
	}

	var audit model.ActivityLog
	if err := db.Where("action = ?", "player_ban").First(&audit).Error; err != nil {
		t.Fatalf("expected an audit row: %v", err)
	}

	if _, err := svc.AdminSetStatus(ctx, 7, seeded.ID, "vip", ""); !errors.Is(err, appErr.ErrInvalidPlayerStatus) {
		t.Fatalf("expected ErrInvalidPlayerStatus, got %v", err)
	}
	if _, err := svc.AdminSetStatus(ctx, 7, seeded.ID+100, "banned", ""); !errors.Is(err, appErr.ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
}

func TestAdminListFilter(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)
	seedPlayer(t, db, "discord-1", "mika")
	seedPlayer(t, db, "discord-2", "joon")
	banned := seedPlayer(t, db, "discord-3", "ren")
	if err := db.Model(&banned).Update("status", "banned").Error; err != nil {
		t.Fatalf("seed ban failed: %v", err)
	}

	result, err := svc.AdminList(ctx, player.AdminListFilter{Status: "banned"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Total != 1 || result.Items[0].DisplayName != "ren" {
		t.Fatalf("status filter broken: %+v", result)
	}

	result, err = svc.AdminList(ctx, player.AdminListFilter{NameKeyword: "j"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Total != 1 || result.Items[0].DisplayName != "joon" {
		t.Fatalf("keyword filter broken: %+v", result)
	}
}
