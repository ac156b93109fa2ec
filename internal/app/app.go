package app

import (
	"context"
	"fmt"

	"github.com/go-redis/redis"
	"github.com/spf13/viper"
	"github.com/xpanvictor/chemtalk/internal/config"
	"github.com/xpanvictor/chemtalk/internal/domains/conversation"
	"github.com/xpanvictor/chemtalk/internal/domains/reference"
	"github.com/xpanvictor/chemtalk/internal/domains/sys_manager"
	"github.com/xpanvictor/chemtalk/internal/domains/user"
	"github.com/xpanvictor/chemtalk/internal/domains/voice"
	convoRepo "github.com/xpanvictor/chemtalk/internal/repository/conversation"
	"github.com/xpanvictor/chemtalk/internal/server"
	"github.com/xpanvictor/chemtalk/internal/types"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
	"github.com/xpanvictor/chemtalk/pkg/assistant/router"
	"github.com/xpanvictor/chemtalk/pkg/cache"
	pkgio "github.com/xpanvictor/chemtalk/pkg/io"
	"github.com/xpanvictor/chemtalk/pkg/io/registry"
	memoryregistry "github.com/xpanvictor/chemtalk/pkg/io/registry/memoryRegistry"
	"github.com/xpanvictor/chemtalk/pkg/io/stt"
	"github.com/xpanvictor/chemtalk/pkg/io/stt/capture"
	"github.com/xpanvictor/chemtalk/pkg/io/stt/vad"
	"github.com/xpanvictor/chemtalk/pkg/io/stt/whisper"
	"github.com/xpanvictor/chemtalk/pkg/io/tts"
	"github.com/xpanvictor/chemtalk/pkg/io/tts/elevenlabs"
	"github.com/xpanvictor/chemtalk/pkg/io/tts/piper"
	"gorm.io/gorm"
)

const referenceKeyPrefix = "chemtalk:reference:"

// App represents the application with all its dependencies
type App struct {
	Config *config.Settings
	Viper  *viper.Viper
	Logger *Logger.Logger
	DB     *gorm.DB
	RC     *redis.Client

	Resolver       *config.Resolver
	LLMFactory     *LLMRouterFactory
	LLMRouter      *router.Mux
	DeviceRegistry registry.Registry
	Publisher      *pkgio.Publisher
	SystemManager  *sys_manager.SystemManager
	// repos
	ConversationRepo types.ConversationRepository
	// services
	SessionService      user.SessionService
	ConversationService conversation.ConversationService
	Compounds           *reference.Lookup
	Voice               *voice.Service

	ServerDeps server.Dependencies
}

// NewApp wires every dependency. sessions decides who the current user is:
// the HTTP surface reads it from the request, the CLI uses a fixed user. rc
// may be nil, in which case the reference cache stays in process.
func NewApp(
	ctx context.Context,
	cfg *config.Settings,
	v *viper.Viper,
	logger *Logger.Logger,
	db *gorm.DB,
	rc *redis.Client,
	sessions conversation.SessionProvider,
) (*App, error) {
	app := &App{
		Config: cfg,
		Viper:  v,
		Logger: logger,
		DB:     db,
		RC:     rc,
	}

	if err := app.setupDependencies(ctx, sessions); err != nil {
		return nil, err
	}

	return app, nil
}

// setupDependencies initializes all application dependencies
func (a *App) setupDependencies(ctx context.Context, sessions conversation.SessionProvider) error {
	smCfg := sys_manager.DefaultSystemManagerConfig()
	a.SystemManager = sys_manager.NewSystemManager(a.Logger)

	// 1. providers
	env := config.ViperEnv{V: a.Viper}
	a.Resolver = config.NewResolver(a.Logger)
	a.Resolver.Resolve(env)
	if err := a.setupLLMRouter(ctx, env); err != nil {
		return err
	}

	// 2. conversation
	a.ConversationRepo = convoRepo.NewGormConversationRepo(a.DB)
	orch := conversation.NewOrchestrator(
		a.LLMRouter,
		a.Resolver,
		conversation.NewWindow(a.Config.Conversation.WindowTurns),
		cache.NewFIFO[types.AnswerResult](a.Config.Conversation.CacheEntries),
		conversation.NewFallback(),
		a.Logger,
		conversation.OrchestratorOptions{
			PromptTurns:         a.Config.Conversation.PromptTurns,
			RecordFallbackTurns: a.Config.Conversation.RecordFallbackTurns,
		},
	)
	a.ConversationService = conversation.NewConversationService(orch, a.ConversationRepo, sessions, a.Logger)

	// 3. reference lookups, shared through redis when there is one
	var compounds cache.Cache[reference.Compound]
	if a.RC != nil {
		compounds = cache.NewRedisTTL[reference.Compound](a.RC, referenceKeyPrefix, a.Config.Reference.TTL(), a.Logger)
	} else {
		local := cache.NewTTL[reference.Compound](a.Config.Reference.TTL())
		a.SystemManager.RegisterTask(sys_manager.NewCachePurgeTask("reference", local, smCfg.CachePurgeInterval, a.Logger))
		compounds = local
	}
	a.Compounds = reference.NewLookup(reference.NewStaticSource(), compounds, a.Logger)

	// 4. sessions
	if a.Config.Auth.JWTSecret == "" {
		a.Logger.Warn("JWT secret not configured, authenticated routes will reject every request")
	}
	a.SessionService = user.NewSessionService(a.Config.Auth.JWTSecret, a.Logger)

	// 5. devices and voice
	a.DeviceRegistry = memoryregistry.New()
	a.Publisher = pkgio.New(a.DeviceRegistry, a.Logger)
	a.Voice = voice.NewService(a.voiceDeps(), a.Logger)
	a.SystemManager.RegisterTask(sys_manager.NewVoiceReapTask(a.Voice, smCfg, a.Logger))

	a.ServerDeps = server.Dependencies{
		Logger:              a.Logger,
		SessionService:      a.SessionService,
		ConversationService: a.ConversationService,
		VoiceService:        a.Voice,
		DeviceRegistry:      a.DeviceRegistry,
		Providers:           a.LLMRouter,
		Compounds:           a.Compounds,
	}

	return nil
}

// setupLLMRouter configures the LLM providers and creates the router
func (a *App) setupLLMRouter(ctx context.Context, env config.Environment) error {
	a.LLMFactory = NewLLMRouterFactory(env, a.Resolver, a.Config, a.Logger)

	mux, err := a.LLMFactory.CreateRouter(ctx)
	if err != nil {
		return fmt.Errorf("llm router: %w", err)
	}

	a.LLMRouter = mux
	return nil
}

func (a *App) voiceDeps() voice.Deps {
	syn := a.Config.Synthesis
	speech := a.Config.Speech

	var recognizer stt.Recognizer
	if speech.WhisperURL != "" {
		recognizer = whisper.NewClient(speech.WhisperURL, speech.Language, a.Logger)
	}
	vadCfg := vad.DefaultConfig()
	var detector vad.Detector = vad.NewEnergy(vadCfg)
	if speech.VADURL != "" {
		detector = vad.NewSilero(vadCfg, speech.VADURL, a.Logger)
	}

	capCfg := capture.DefaultConfig()
	if speech.MaxListen > 0 {
		capCfg.MaxListen = speech.MaxListen
	}
	if speech.SilenceHold > 0 {
		capCfg.SilenceHold = speech.SilenceHold
	}

	synth := tts.First(
		elevenlabs.New(elevenlabs.Config{APIKey: syn.ElevenLabsKey, VoiceID: syn.ElevenLabsVoice}),
		piper.New(syn.PiperURL, syn.PiperVoice),
	)
	if synth == nil {
		a.Logger.Warn("no synthesis backend configured, speech output is disabled")
	} else {
		a.Logger.Infof("speech output via %s", synth.Name())
	}

	return voice.Deps{
		Synth:      synth,
		Recognizer: recognizer,
		Detector:   detector,
		Registry:   a.DeviceRegistry,
		Publisher:  a.Publisher,
		Capture:    capCfg,
	}
}

// Start runs the background housekeeping tasks.
func (a *App) Start() error {
	return a.SystemManager.Start()
}

// Close stops background work and releases connections.
func (a *App) Close() {
	if err := a.SystemManager.Stop(); err != nil {
		a.Logger.Errorf("stop system manager: %v", err)
	}
	a.Voice.Close()
	if a.RC != nil {
		_ = a.RC.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// GetServerDependencies returns the server dependencies
func (a *App) GetServerDependencies() server.Dependencies {
	return a.ServerDeps
}
