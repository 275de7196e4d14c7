package workflow

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/mmdatafocus/polystore_seed/config"
	"github.com/mmdatafocus/polystore_seed/generator"
	"github.com/mmdatafocus/polystore_seed/models"
	"github.com/mmdatafocus/polystore_seed/stores"
	"github.com/mmdatafocus/polystore_seed/utils"
	"github.com/sirupsen/logrus"
)

// UserMaterializer seeds the users table that orders reference.
type UserMaterializer struct {
	rel        stores.RelationalStore
	r          *rand.Rand
	now        func() time.Time
	numUsers   int
	bcryptCost int
	logger     logrus.FieldLogger
	tally      *Tally
}

func NewUserMaterializer(s *config.Settings, rel stores.RelationalStore, r *rand.Rand, logger logrus.FieldLogger, tally *Tally) *UserMaterializer {
	return &UserMaterializer{
		rel:        rel,
		r:          r,
		now:        time.Now,
		numUsers:   s.NumUsers,
		bcryptCost: s.BcryptCost,
		logger:     logger,
		tally:      tally,
	}
}

// Materialize inserts numUsers users with hashed passwords and E.164 phones.
// Emails that already exist are skipped. A failed insert is logged and
// counted; it is not fatal here, order synthesis reports the missing users.
func (m *UserMaterializer) Materialize(ctx context.Context) (int, error) {
	if m.numUsers == 0 {
		return 0, nil
	}
	m.logger.Infof("generating %d users", m.numUsers)

	now := m.now()
	users := make([]models.User, 0, m.numUsers)
	for seq := 1; seq <= m.numUsers; seq++ {
		u := generator.NewUser(m.r, seq, now)
		hashed, err := utils.HashPassword(u.Password, m.bcryptCost)
		if err != nil {
			return 0, fmt.Errorf("hash password for %s: %w", u.Email, err)
		}
		u.Password = string(hashed)
		phone, err := utils.NormalizePhoneNumber(u.Phone, utils.CountryCode)
		if err != nil {
			m.logger.Debugf("drop phone %q for %s: %v", u.Phone, u.Email, err)
			phone = ""
		}
		u.Phone = phone
		users = append(users, u)
	}

	inserted, err := m.rel.InsertUsers(ctx, users)
	if err != nil {
		config.LogError(m.logger, "UserMaterializer", "Materialize", "insert users", map[string]int{"users": len(users)}, err)
		m.tally.AddBatchFailure(StageUsers)
		return 0, nil
	}
	if skipped := len(users) - int(inserted); skipped > 0 {
		m.tally.AddConstraintViolations(skipped)
		m.logger.Infof("%d users already present", skipped)
	}
	m.tally.AddWritten(StageUsers, int(inserted))
	m.logger.Infof("inserted %d users", inserted)
	return int(inserted), nil
}
