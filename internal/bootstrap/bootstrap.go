// Package bootstrap assembles the tutoring services from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tutor/backend/internal/config"
	"github.com/zhouzirui/z-tutor/backend/internal/logger"
	"github.com/zhouzirui/z-tutor/backend/internal/model/persona"
	"github.com/zhouzirui/z-tutor/backend/internal/repository/history"
	"github.com/zhouzirui/z-tutor/backend/internal/service/ai"
	"github.com/zhouzirui/z-tutor/backend/internal/service/chat"
	"github.com/zhouzirui/z-tutor/backend/internal/service/classifier"
	"github.com/zhouzirui/z-tutor/backend/internal/service/tutor"
)

// App holds the wired services. Close releases the history store.
type App struct {
	Tutor    *tutor.Service
	Personas persona.Store
	History  history.Store
}

// Close releases the history store.
func (a *App) Close() error {
	return a.History.Close()
}

// OpenHistory opens the configured durable log.
func OpenHistory(cfg config.HistoryConfig) (history.Store, error) {
	switch cfg.Backend {
	case config.HistoryMemory:
		return history.NewMemoryStore(), nil
	case config.HistorySQLite:
		return history.NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}

// New 组装分类、路由与会话服务。chatModel 为 nil 时按配置创建。
func New(ctx context.Context, cfg *config.Config, chatModel model.ChatModel, l *zap.Logger) (*App, error) {
	l = logger.OrNop(l)

	if chatModel == nil {
		var err error
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("create chat model: %w", err)
		}
		l.Info("chat model ready",
			zap.String("provider", cfg.AI.Provider),
			zap.String("model", cfg.AI.Model),
			zap.Bool("stream", cfg.AI.StreamResponse))
	}

	store, err := OpenHistory(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	l.Info("history store ready", zap.String("backend", cfg.History.Backend), zap.String("path", cfg.History.Path))

	app, err := assemble(ctx, cfg, chatModel, store, l)
	if err != nil {
		store.Close()
		return nil, err
	}
	return app, nil
}

func assemble(ctx context.Context, cfg *config.Config, chatModel model.ChatModel, store history.Store, l *zap.Logger) (*App, error) {
	personaStore := persona.NewMemoryStore(persona.Seed())

	mode := classifier.Mode(cfg.AI.ClassifierMode)
	classifierModel := chatModel
	if mode == classifier.ModeKeyword {
		classifierModel = nil
	}
	cls, err := classifier.NewService(ctx, classifierModel, mode, l)
	if err != nil {
		return nil, fmt.Errorf("create classifier: %w", err)
	}
	l.Info("classifier ready", zap.String("mode", string(cls.Mode())))

	router, err := ai.NewService(ctx, chatModel, personaStore, ai.Options{
		Streaming:    cfg.AI.StreamResponse,
		HistoryLimit: cfg.AI.HistoryLimit,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("create ai service: %w", err)
	}

	sessions, err := chat.NewService(store, cfg.History.CacheSize, l)
	if err != nil {
		return nil, fmt.Errorf("create chat service: %w", err)
	}

	return &App{
		Tutor:    tutor.NewService(cls, router, sessions, personaStore, l),
		Personas: personaStore,
		History:  store,
	}, nil
}
