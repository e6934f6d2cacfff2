package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"botdeck/auth"
	"botdeck/config"
	"botdeck/logger"
	"botdeck/session"
	"botdeck/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Backtester is the slice of the engine gateway the API calls directly,
// outside any session
type Backtester interface {
	Backtest(ctx context.Context, strategyID, symbol, startDate, endDate string) (json.RawMessage, error)
}

// Server HTTP API server
type Server struct {
	router     *gin.Engine
	sessions   *session.Manager
	store      *store.Store
	engine     Backtester
	httpServer *http.Server
	port       int
}

// NewServer creates API server
func NewServer(sessions *session.Manager, st *store.Store, engine Backtester, port int) *Server {
	// Set to Release mode (reduce log output)
	gin.SetMode(gin.ReleaseMode)

	router := gin.Default()

	// Enable CORS
	router.Use(corsMiddleware())

	s := &Server{
		router:   router,
		sessions: sessions,
		store:    st,
		engine:   engine,
		port:     port,
	}

	s.setupRoutes()

	return s
}

// corsMiddleware CORS middleware
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// setupRoutes sets up routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		// Health check
		api.Any("/health", s.handleHealth)

		// System config (no authentication required, for frontend)
		api.GET("/config", s.handleGetSystemConfig)

		// Authentication related routes (no authentication required)
		api.POST("/register", s.handleRegister)
		api.POST("/complete-registration", s.handleCompleteRegistration)
		api.POST("/login", s.handleLogin)
		api.POST("/verify-otp", s.handleVerifyOTP)

		// Routes requiring authentication
		protected := api.Group("/", s.authMiddleware())
		{
			// Logout (add to blacklist)
			protected.POST("/logout", s.handleLogout)

			// Bot registry
			protected.GET("/bots", s.handleBotList)
			protected.POST("/bots", s.handleCreateBot)
			protected.PUT("/bots/:id/status", s.handleUpdateBotStatus)
			protected.DELETE("/bots/:id", s.handleDeleteBot)

			// Bot execution control
			protected.POST("/activate-bot", s.handleActivateBot)
			protected.POST("/stop-bot", s.handleStopBot)
			protected.GET("/bot-logs", s.handleBotLogs)
			protected.GET("/orders", s.handleOrders)
			protected.GET("/session", s.handleSessionSnapshot)
			protected.GET("/session/stream", s.handleSessionStream)
			protected.POST("/session/close", s.handleSessionClose)

			// Strategy management
			protected.GET("/strategies", s.handleGetStrategies)
			protected.POST("/strategies", s.handleCreateStrategy)
			protected.PUT("/strategies/:id", s.handleUpdateStrategy)
			protected.DELETE("/strategies/:id", s.handleDeleteStrategy)

			// Historical backtest (runs on the engine)
			protected.POST("/backtest", s.handleBacktest)

			// Watchlist
			protected.GET("/watchlist", s.handleGetWatchlist)
			protected.POST("/watchlist", s.handleAddWatchlistEntry)
			protected.DELETE("/watchlist/:id", s.handleDeleteWatchlistEntry)

			// Billing boundary: checkout happens externally, this flips the flag
			protected.POST("/verify-payment", s.handleVerifyPayment)
		}
	}
}

// handleHealth health check
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleGetSystemConfig get system configuration (configuration that client needs to know)
func (s *Server) handleGetSystemConfig(c *gin.Context) {
	cfg := config.Get()

	c.JSON(http.StatusOK, gin.H{
		"registration_enabled": cfg.RegistrationEnabled,
		"free_plan_limit":      cfg.FreePlanLimit,
	})
}

// authMiddleware JWT authentication middleware
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing Authorization header"})
			c.Abort()
			return
		}

		// Check Bearer token format
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Authorization format"})
			c.Abort()
			return
		}

		tokenString := tokenParts[1]

		// Blacklist check
		if auth.IsTokenBlacklisted(tokenString) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired, please login again"})
			c.Abort()
			return
		}

		// Validate JWT token
		claims, err := auth.ValidateJWT(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token: " + err.Error()})
			c.Abort()
			return
		}

		// Store user information in context
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Next()
	}
}

// handleRegister handle user registration request
func (s *Server) handleRegister(c *gin.Context) {
	if !config.Get().RegistrationEnabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "Registration is disabled"})
		return
	}

	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Check if email already exists
	if _, err := s.store.User().GetByEmail(req.Email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Password processing failed"})
		return
	}

	otpSecret, err := auth.GenerateOTPSecret()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "OTP secret generation failed"})
		return
	}

	// Create user (unverified OTP status)
	userID := uuid.New().String()
	user := &store.User{
		ID:           userID,
		Email:        req.Email,
		PasswordHash: passwordHash,
		OTPSecret:    otpSecret,
		OTPVerified:  false,
	}

	if err := s.store.User().Create(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user: " + err.Error()})
		return
	}

	qrCodeURL := auth.GetOTPQRCodeURL(otpSecret, req.Email)
	c.JSON(http.StatusOK, gin.H{
		"user_id":     userID,
		"email":       req.Email,
		"otp_secret":  otpSecret,
		"qr_code_url": qrCodeURL,
		"message":     "Please scan the QR code with an authenticator app and verify OTP",
	})
}

// handleCompleteRegistration complete registration (verify OTP)
func (s *Server) handleCompleteRegistration(c *gin.Context) {
	var req struct {
		UserID  string `json:"user_id" binding:"required"`
		OTPCode string `json:"otp_code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.store.User().GetByID(req.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User does not exist"})
		return
	}

	if !auth.VerifyOTP(user.OTPSecret, req.OTPCode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "OTP code error"})
		return
	}

	if err := s.store.User().UpdateOTPVerified(req.UserID, true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user status"})
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"user_id": user.ID,
		"email":   user.Email,
		"message": "Registration completed",
	})
}

// handleLogin handle user login request
func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.store.User().GetByEmail(req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email or password incorrect"})
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email or password incorrect"})
		return
	}

	if !user.OTPVerified {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":              "Account has not completed OTP setup",
			"user_id":            user.ID,
			"requires_otp_setup": true,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      user.ID,
		"email":        user.Email,
		"message":      "Please enter your authenticator code",
		"requires_otp": true,
	})
}

// handleVerifyOTP verify OTP and complete login
func (s *Server) handleVerifyOTP(c *gin.Context) {
	var req struct {
		UserID  string `json:"user_id" binding:"required"`
		OTPCode string `json:"otp_code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.store.User().GetByID(req.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User does not exist"})
		return
	}

	if !auth.VerifyOTP(user.OTPSecret, req.OTPCode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Verification code error"})
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":         token,
		"user_id":       user.ID,
		"email":         user.Email,
		"is_subscribed": user.IsSubscribed,
		"message":       "Login successful",
	})
}

// handleLogout invalidate the caller's token and close their session
func (s *Server) handleLogout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) == 2 {
		auth.BlacklistToken(tokenParts[1])
	}

	s.sessions.Close(c.GetString("user_id"))
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// handleVerifyPayment billing boundary: the external checkout succeeded,
// flip the subscription flag
func (s *Server) handleVerifyPayment(c *gin.Context) {
	userID := c.GetString("user_id")

	if err := s.store.User().SetSubscribed(userID, true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update subscription"})
		return
	}

	logger.Infof("💳 User %s subscription activated", userID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Start starts server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	logger.Infof("🌐 API server starting at http://localhost%s", addr)
	logger.Infof("📊 API Documentation:")
	logger.Infof("  • GET  /api/health          - Health check")
	logger.Infof("  • POST /api/register        - Register account")
	logger.Infof("  • POST /api/login           - Login (step 1)")
	logger.Infof("  • POST /api/verify-otp      - Login (step 2, issues token)")
	logger.Infof("  • GET  /api/bots            - List bots")
	logger.Infof("  • POST /api/bots            - Create bot")
	logger.Infof("  • POST /api/activate-bot    - Start bot on the engine")
	logger.Infof("  • POST /api/stop-bot        - Stop bot on the engine")
	logger.Infof("  • GET  /api/bot-logs?bot_id=xxx - Bot log view")
	logger.Infof("  • GET  /api/orders          - Executed order feed")
	logger.Infof("  • POST /api/backtest        - Run historical backtest")
	logger.Infof("  • GET  /api/session         - Session snapshot")
	logger.Infof("  • GET  /api/session/stream  - Live snapshot stream (websocket)")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shutdown server
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
