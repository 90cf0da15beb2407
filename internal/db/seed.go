package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedTags = []string{
	"hiking", "movies", "cooking", "travel", "music", "yoga",
	"gaming", "photography", "running", "art", "coffee", "dancing",
}

// SeedTestData resets the database and populates it with demo accounts.
//
// Behavior:
//  1. Clears all domain tables.
//  2. Creates 20 users (10 male, 10 female) with profiles, interest tags and
//     locations scattered around central London.
//  3. Generates swipes with ~70% likes; every 3rd like is made mutual so the
//     matches table has content.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	tables := []string{"messages", "matches", "blocks", "swipes", "password_resets", "profile_images", "user_locations", "profiles", "users"}
	for _, tbl := range tables {
		if err := db.Exec("DELETE FROM " + tbl).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", tbl, err)
		}
	}
	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	ids := make([]uint64, 0, 20)
	for i := 1; i <= 20; i++ {
		gender := GenderMale
		interest := GenderFemale
		if i > 10 {
			gender = GenderFemale
			interest = GenderMale
		}

		tags := StringList{}
		for _, t := range seedTags {
			if r.Intn(100) < 35 {
				tags = append(tags, t)
			}
		}

		user := User{
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		profile := Profile{
			UserID:       user.ID,
			FullName:     fmt.Sprintf("Demo User %d", i),
			Bio:          "Seeded demo account",
			Birthdate:    time.Date(1980+r.Intn(25), time.Month(1+r.Intn(12)), 1+r.Intn(28), 0, 0, 0, 0, time.UTC),
			Gender:       gender,
			InterestIn:   interest,
			AgeMin:       18,
			AgeMax:       100,
			InterestTags: tags,
		}
		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}

		// Scatter within ~20 km of central London.
		loc := UserLocation{
			UserID:    user.ID,
			Latitude:  51.5074 + (r.Float64()-0.5)*0.3,
			Longitude: -0.1278 + (r.Float64()-0.5)*0.3,
		}
		if err := db.Create(&loc).Error; err != nil {
			return fmt.Errorf("failed to seed location: %w", err)
		}

		ids = append(ids, user.ID)
	}
	log.Println("Seeded 20 users.")

	counter := 0
	for _, likerID := range ids {
		for j := 0; j < 6; j++ {
			likedID := ids[r.Intn(len(ids))]
			if likerID == likedID {
				continue
			}

			liked := r.Intn(100) < 70
			if counter%3 == 0 {
				liked = true
				recip := Swipe{LikerID: likedID, LikedID: likerID, IsLike: true}
				if err := db.Create(&recip).Error; err != nil {
					return fmt.Errorf("failed to seed swipe: %w", err)
				}
				u1, u2 := likerID, likedID
				if u2 < u1 {
					u1, u2 = u2, u1
				}
				db.Where("user1_id = ? AND user2_id = ?", u1, u2).
					FirstOrCreate(&Match{User1ID: u1, User2ID: u2})
			}

			swipe := Swipe{LikerID: likerID, LikedID: likedID, IsLike: liked}
			if err := db.Create(&swipe).Error; err != nil {
				return fmt.Errorf("failed to seed swipe: %w", err)
			}
			counter++
		}
	}

	return nil
}
