package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/vietanh2810/eventhub-api/docs"
	v1 "github.com/vietanh2810/eventhub-api/internal/api/handler/v1"
	"github.com/vietanh2810/eventhub-api/internal/api/middleware"
	"github.com/vietanh2810/eventhub-api/internal/broadcast"
	"github.com/vietanh2810/eventhub-api/internal/cache"
	"github.com/vietanh2810/eventhub-api/internal/config"
	"github.com/vietanh2810/eventhub-api/internal/repository"
	"github.com/vietanh2810/eventhub-api/internal/repository/dao"
	"github.com/vietanh2810/eventhub-api/internal/repository/memory"
	"github.com/vietanh2810/eventhub-api/internal/service"
)

type UserStore interface {
	service.UserRepository
	service.AuthUserRepository
}

// Storage is the set of repositories behind one storage driver.
type Storage struct {
	Users          UserStore
	Events         service.EventRepository
	Participations service.ParticipationRepository
	Polls          service.PollRepository
}

func NewPostgresStorage(db *gorm.DB) Storage {
	return Storage{
		Users:          repository.NewUserRepository(dao.NewUserDAO(db)),
		Events:         repository.NewEventRepository(dao.NewEventDAO(db)),
		Participations: repository.NewParticipationRepository(dao.NewParticipationDAO(db)),
		Polls:          repository.NewPollRepository(dao.NewPollDAO(db)),
	}
}

func NewMemoryStorage(store *memory.Store) Storage {
	return Storage{
		Users:          store.Users(),
		Events:         store.Events(),
		Participations: store.Participations(),
		Polls:          store.Polls(),
	}
}

type Server struct {
	Config      *config.AppConfig
	Router      *gin.Engine
	Cache       *cache.Cache
	Broadcaster *broadcast.Broadcaster

	storage Storage
	qr      service.QREncoder
}

func NewServer(conf *config.AppConfig, storage Storage, c *cache.Cache, broadcaster *broadcast.Broadcaster) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config:      conf,
		Router:      engine,
		Cache:       c,
		Broadcaster: broadcaster,
		storage:     storage,
		qr:          service.NewPNGEncoder(),
	}

	s.MountMiddlewares()

	handlers := Handlers{
		User:        s.initUserHandler(),
		Event:       s.initEventHandler(),
		Participant: s.initParticipantHandler(),
		Stream:      s.initStreamHandler(),
		Poll:        s.initPollHandler(),
	}
	s.MountHandlers(handlers)

	return s
}

type Handlers struct {
	User        *v1.UserHandler
	Event       *v1.EventHandler
	Participant *v1.ParticipantHandler
	Stream      *v1.StreamHandler
	Poll        *v1.PollHandler
}

func (s *Server) initUserHandler() *v1.UserHandler {
	svc := service.NewUserService(s.storage.Users)
	handler := v1.NewUserHandler(svc)

	return handler
}

func (s *Server) initEventHandler() *v1.EventHandler {
	svc := service.NewEventService(s.storage.Events, s.storage.Participations, s.storage.Users, s.Cache, s.qr, s.Config.API.PublicURL)
	handler := v1.NewEventHandler(svc)

	return handler
}

func (s *Server) initParticipantHandler() *v1.ParticipantHandler {
	svc := service.NewRegistrationService(s.storage.Events, s.storage.Participations, s.storage.Users, s.Cache)
	checkIns := s.newCheckInService()
	handler := v1.NewParticipantHandler(svc, checkIns)

	return handler
}

func (s *Server) initStreamHandler() *v1.StreamHandler {
	handler := v1.NewStreamHandler(s.Config.Broadcast, s.newCheckInService(), s.Broadcaster)

	return handler
}

func (s *Server) initPollHandler() *v1.PollHandler {
	svc := service.NewPollService(s.storage.Polls, s.storage.Events, s.Cache)
	handler := v1.NewPollHandler(svc)

	return handler
}

func (s *Server) newCheckInService() *service.CheckInService {
	return service.NewCheckInService(s.storage.Events, s.storage.Participations, s.storage.Users, s.Cache, s.Broadcaster, s.qr, s.Config.API.PublicURL)
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(h Handlers) {
	const basePath = "/api/v1"

	authenticator := middleware.NewAuthenticator(s.Config.API.JWTSigningKey, service.NewAuthService(s.storage.Users))

	users := s.Router.Group(basePath, authenticator.VerifyJWT())
	{
		users.GET("/users/me", h.User.HandleGetMe)
		users.GET("/users/:userID", h.User.HandleGetUser)
	}

	events := s.Router.Group(basePath, authenticator.VerifyJWT())
	{
		events.POST("/events", h.Event.HandleCreateEvent)
		events.GET("/events", h.Event.HandleListEvents)
		events.GET("/events/managed", h.Event.HandleListManagedEvents)
		events.GET("/events/:eventID", h.Event.HandleGetEvent)
		events.PUT("/events/:eventID", h.Event.HandleUpdateEvent)
		events.DELETE("/events/:eventID", h.Event.HandleCancelEvent)
		events.PUT("/events/:eventID/managers", h.Event.HandleAssignManager)
		events.GET("/events/:eventID/qr/join", h.Event.HandleGetJoinQR)
	}

	participants := s.Router.Group(basePath, authenticator.VerifyJWT())
	{
		participants.POST("/events/join/:token", h.Participant.HandleJoinEvent)
		participants.GET("/events/:eventID/participants", h.Participant.HandleGetParticipants)
		participants.POST("/events/:eventID/participants", h.Participant.HandleAddParticipants)
		participants.DELETE("/events/:eventID/participants", h.Participant.HandleRemoveParticipants)
		participants.DELETE("/events/:eventID/registration", h.Participant.HandleCancelRegistration)
		participants.GET("/events/:eventID/qr/check-in", h.Participant.HandleGetCheckInQR)
		participants.POST("/check-in/:token", h.Participant.HandleCheckIn)
	}

	streams := s.Router.Group(basePath, authenticator.VerifyJWT())
	{
		streams.GET("/events/:eventID/stream", h.Stream.HandleEventStream)
		streams.GET("/events/:eventID/ws", h.Stream.HandleEventWebSocket)
	}

	polls := s.Router.Group(basePath, authenticator.VerifyJWT())
	{
		polls.POST("/events/:eventID/polls", h.Poll.HandleCreatePoll)
		polls.GET("/events/:eventID/polls", h.Poll.HandleGetPollsByEvent)
		polls.GET("/events/:eventID/polls/stats", h.Poll.HandleGetPollStatsByEvent)
		polls.GET("/polls/:pollID", h.Poll.HandleGetPoll)
		polls.PUT("/polls/:pollID", h.Poll.HandleUpdatePoll)
		polls.POST("/polls/:pollID/close", h.Poll.HandleClosePoll)
		polls.POST("/polls/:pollID/votes", h.Poll.HandleVote)
		polls.GET("/polls/:pollID/votes/me", h.Poll.HandleGetMyVotes)
		polls.GET("/polls/:pollID/stats", h.Poll.HandleGetPollStats)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "eventhub API"
	docs.SwaggerInfo.Description = "Event registration, check-in, live feeds and polls."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
