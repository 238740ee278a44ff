package main

import (
	"github.com/dicomeinit/post-comment-app/ai"
	"github.com/dicomeinit/post-comment-app/config"
	"github.com/dicomeinit/post-comment-app/models"
	"github.com/dicomeinit/post-comment-app/routes"
	"github.com/dicomeinit/post-comment-app/scheduler"
	"github.com/dicomeinit/post-comment-app/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.Post{}, &models.Comment{})

	// One model client behind both the moderation gate and reply generation.
	client := ai.NewClient(cfg)
	moderator := ai.NewModerator(client, cfg.AIMaxAttempts, ai.ParseFailPolicy(cfg.AIFailPolicy), utils.Sugar)
	replier := ai.NewReplier(client)
	sched := scheduler.New(db, replier, utils.Sugar)

	r := routes.SetupRouter(db, moderator, sched)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
