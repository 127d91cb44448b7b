package app

import (
	"gorm.io/gorm"

	"github.com/openscout/scout-backend/internal/data/repos"
	"github.com/openscout/scout-backend/internal/platform/logger"
)

type Repos struct {
	Chats    repos.ChatRepo
	Messages repos.MessageRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Chats:    repos.NewChatRepo(db, log),
		Messages: repos.NewMessageRepo(db, log),
	}
}
