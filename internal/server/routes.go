package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xpanvictor/chemtalk/internal/domains/conversation"
	"github.com/xpanvictor/chemtalk/internal/domains/user"
	"github.com/xpanvictor/chemtalk/internal/domains/voice"
	"github.com/xpanvictor/chemtalk/internal/handlers"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
	"github.com/xpanvictor/chemtalk/pkg/io/registry"
)

// Dependencies is everything the HTTP surface talks to.
type Dependencies struct {
	Logger              *Logger.Logger
	SessionService      user.SessionService
	ConversationService conversation.ConversationService
	VoiceService        *voice.Service
	DeviceRegistry      registry.Registry
	Providers           handlers.Cataloger
	Compounds           handlers.CompoundLookup
}

// NewRouter builds the gin engine with the shared middleware stack.
func NewRouter(dep Dependencies, debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		handlers.ErrorHandlerMiddleware(dep.Logger),
		handlers.RequestLoggerMiddleware(dep.Logger),
		handlers.CORSMiddleware(),
	)
	InitializeRoutes(r, dep)
	return r
}

func InitializeRoutes(r *gin.Engine, dep Dependencies) {
	r.GET("/", func(ctx *gin.Context) { ctx.JSON(http.StatusOK, gin.H{"message": "Server healthy"}) })
	r.GET("/health", func(ctx *gin.Context) { ctx.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	convo := handlers.NewConvoHandler(dep.ConversationService, dep.VoiceService, dep.Logger)
	speech := handlers.NewSpeechHandler(dep.VoiceService, dep.Logger)
	catalog := handlers.NewCatalogHandler(dep.Providers, dep.Compounds, dep.Logger)
	devices := handlers.NewDeviceHandler(dep.DeviceRegistry, dep.Logger)

	v1 := r.Group("/v1")
	v1.Use(handlers.AuthMiddleware(dep.SessionService, dep.Logger))
	{
		v1.POST("/conversations", convo.StartConversation)
		v1.GET("/conversations", convo.ListConversations)
		v1.GET("/conversations/:id/messages", convo.RetrieveMessages)
		v1.DELETE("/conversations/:id", convo.EndConversation)
		v1.POST("/conversations/:id/answer", convo.Answer)
		v1.POST("/answer", convo.Ask)

		v1.POST("/speech", speech.Speak)
		v1.DELETE("/speech", speech.StopSpeaking)
		v1.POST("/speech/listen", speech.Listen)
		v1.DELETE("/speech/listen", speech.CancelListening)

		v1.GET("/providers/models", catalog.ListModels)
		v1.GET("/reference/:name", catalog.GetCompound)

		v1.GET("/devices/ws", devices.Connect)
	}
}
