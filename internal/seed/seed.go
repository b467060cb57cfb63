// Package seed fills an empty database with the default admin account,
// hostel details and room catalogue.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/leemont-hostel/internal/model"
	"github.com/iliyamo/leemont-hostel/internal/repository"
)

// RoomCount is the number of rooms created on first start.
const RoomCount = 15

// Stores groups the repositories seeding writes to.
type Stores struct {
	Users  *repository.UserRepo
	Rooms  *repository.RoomRepo
	Hostel *repository.HostelRepo
}

// Options controls the seeded admin account.
type Options struct {
	AdminEmail    string
	AdminPassword string
	BcryptCost    int
}

// Run creates whatever is missing.  It is safe to call on every start.
func Run(ctx context.Context, st Stores, opt Options, log logrus.FieldLogger) error {
	if err := admin(ctx, st.Users, opt, log); err != nil {
		return err
	}
	if err := hostel(ctx, st.Hostel, log); err != nil {
		return err
	}
	return rooms(ctx, st.Rooms, log)
}

func admin(ctx context.Context, users *repository.UserRepo, opt Options, log logrus.FieldLogger) error {
	_, err := users.GetByEmail(ctx, opt.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}
	if _, err := users.Create(ctx, opt.AdminEmail, opt.AdminPassword, true, opt.BcryptCost); err != nil &&
		!errors.Is(err, repository.ErrEmailExists) {
		return fmt.Errorf("create admin: %w", err)
	}
	log.WithField("email", opt.AdminEmail).Info("admin user created")
	return nil
}

func hostel(ctx context.Context, repo *repository.HostelRepo, log logrus.FieldLogger) error {
	_, err := repo.Get(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrHostelNotFound) {
		return err
	}
	h := DefaultHostel()
	if err := repo.Save(ctx, &h); err != nil {
		return fmt.Errorf("create hostel details: %w", err)
	}
	log.Info("hostel details created")
	return nil
}

func rooms(ctx context.Context, repo *repository.RoomRepo, log logrus.FieldLogger) error {
	all, err := repo.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(all) > 0 {
		return nil
	}
	for _, rm := range DefaultRooms() {
		if err := repo.Create(ctx, &rm); err != nil {
			return fmt.Errorf("create %s: %w", rm.Name, err)
		}
	}
	log.WithField("rooms", RoomCount).Info("room catalogue created")
	return nil
}

// DefaultHostel is the content shown before an operator edits it.
func DefaultHostel() model.HostelDetails {
	return model.HostelDetails{
		Name:            "Leemont Hostel",
		GeneralVideoURL: "https://www.youtube.com/embed/dQw4w9WgXcQ",
		GeneralImages: []string{
			"https://placehold.co/1200x600/1e3a8a/ffffff?text=Leemont+Hostel",
			"https://placehold.co/1200x600/1e40af/ffffff?text=Common+Area",
		},
		Amenities: []string{"Free Wi-Fi", "24/7 Security", "Study Rooms", "Laundry", "Backup Power"},
	}
}

// DefaultRooms returns the initial catalogue: odd-numbered rooms are
// singles, even-numbered rooms doubles, one unit each.
func DefaultRooms() []model.Room {
	out := make([]model.Room, 0, RoomCount)
	for i := 1; i <= RoomCount; i++ {
		rm := model.Room{
			Name:           fmt.Sprintf("Room %d", i),
			AvailableUnits: 1,
			Images:         []string{fmt.Sprintf("https://placehold.co/800x500?text=Room+%d", i)},
			Videos:         []string{},
		}
		if i%2 == 1 {
			rm.Capacity = 1
			rm.PriceMinor = int64(4800+10*i) * 100
			rm.Description = "A private single room with a study desk and wardrobe."
			rm.Amenities = []string{"Single Bed", "Study Desk", "Wardrobe", "Private Bathroom"}
		} else {
			rm.Capacity = 2
			rm.PriceMinor = int64(3200+10*i) * 100
			rm.Description = "A shared room for two with individual desks."
			rm.Amenities = []string{"Two Beds", "Two Study Desks", "Shared Wardrobe", "Balcony"}
		}
		out = append(out, rm)
	}
	return out
}
