package state

import (
	"github.com/sidereusnuntius/gomarks/internal/config"
	"github.com/sidereusnuntius/gomarks/internal/db"
)

type State struct {
	DB     db.DB
	Config config.Configuration
}
