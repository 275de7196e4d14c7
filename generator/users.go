package generator

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/mmdatafocus/polystore_seed/models"
	"github.com/mmdatafocus/polystore_seed/utils"
)

var (
	firstNames = []string{
		"Sarah", "James", "Maria", "David", "Aisha", "Chen", "Olivia", "Liam",
		"Sofia", "Noah", "Priya", "Lucas", "Emma", "Mateo", "Hana", "Ethan",
	}
	lastNames = []string{
		"Smith", "Garcia", "Nguyen", "Johnson", "Khan", "Brown", "Martinez",
		"Lee", "Wilson", "Patel", "Anderson", "Lopez", "Kim", "Taylor",
	}
	// area codes valid under the US numbering plan
	areaCodes = []int{212, 415, 617, 312, 206, 303, 512, 646, 702, 919}
)

const passwordAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789!@#$%"

// NewUser builds the seq-th user with a plaintext password in Password and a
// raw, unnormalized phone. Callers hash and normalize before storage.
func NewUser(r *rand.Rand, seq int, now time.Time) models.User {
	first := utils.Pick(r, firstNames)
	last := utils.Pick(r, lastNames)
	return models.User{
		Email:     fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), seq),
		Password:  RandomPassword(r, 12),
		FirstName: first,
		LastName:  last,
		Phone:     RandomPhone(r),
		CreatedAt: randomTimeBetween(r, now.AddDate(-2, 0, 0), now),
	}
}

func RandomPassword(r *rand.Rand, length int) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(passwordAlphabet[r.IntN(len(passwordAlphabet))])
	}
	return b.String()
}

// RandomPhone returns a US number in (NPA) NXX-XXXX form.
func RandomPhone(r *rand.Rand) string {
	return fmt.Sprintf("(%d) %d-%04d", utils.Pick(r, areaCodes), utils.IntBetween(r, 200, 999), r.IntN(10000))
}
