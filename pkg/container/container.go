package container

import (
	"context"
	"fmt"
	"time"

	"coursestore-backend/internal/config"
	basketRepo "coursestore-backend/internal/domains/basket/repository"
	orderModel "coursestore-backend/internal/domains/order/model"
	orderRepo "coursestore-backend/internal/domains/order/repository"
	orderService "coursestore-backend/internal/domains/order/service"
	"coursestore-backend/internal/domains/payment/gateway"
	"coursestore-backend/internal/domains/payment/gateway/fondy"
	"coursestore-backend/internal/domains/payment/gateway/liqpay"
	"coursestore-backend/internal/domains/payment/gateway/portmone"
	"coursestore-backend/internal/domains/payment/gateway/privatparts"
	paymentHandler "coursestore-backend/internal/domains/payment/handler"
	paymentRepo "coursestore-backend/internal/domains/payment/repository"
	paymentService "coursestore-backend/internal/domains/payment/service"
	infraCache "coursestore-backend/internal/infrastructure/cache"
	"coursestore-backend/internal/infrastructure/database"
	"coursestore-backend/pkg/cache"
	"coursestore-backend/pkg/httpclient"
	"coursestore-backend/pkg/jwt"
	"coursestore-backend/pkg/logger"
)

const processorTimeout = 15 * time.Second

// ========================================
// CONTAINER
// ========================================

// Container is the root of the dependency graph. Initialization order
// matters: config, infrastructure, repositories, gateway clients,
// services, handlers. A processor whose config does not validate is
// skipped rather than failing startup, so a deployment can run with a
// subset of gateways enabled.
type Container struct {
	Config     *config.Config
	DB         *database.PostgresDB
	Redis      *infraCache.RedisClient
	Cache      cache.Cache
	JWTManager *jwt.Manager

	BasketRepo    basketRepo.BasketRepoInterface
	OrderRepo     orderRepo.OrderRepoInterface
	ResponseRepo  paymentRepo.ResponseRepoInterface
	CallbackCache paymentRepo.CallbackCacheInterface

	Registry *gateway.Registry

	OrderService   orderService.OrderService
	PaymentService paymentService.PaymentService
	RefundService  paymentService.RefundService

	PaymentHandler *paymentHandler.PaymentHandler
}

func NewContainer() (*Container, error) {
	c := &Container{}

	// Step 1: configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg

	// Step 2: infrastructure
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)
	if err := db.Connect(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db

	redisClient := infraCache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisClient.Connect(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	c.Redis = redisClient
	c.Cache = redisClient

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret)

	// Step 3: repositories
	c.BasketRepo = basketRepo.NewBasketRepository(db.Pool)
	c.OrderRepo = orderRepo.NewOrderRepository(db.Pool)
	c.ResponseRepo = paymentRepo.NewResponseRepository(db.Pool)
	c.CallbackCache = paymentRepo.NewCallbackCache(c.Cache)

	// Step 4: gateway clients
	codec := orderModel.NumberCodec{
		Prefix: cfg.Order.NumberPrefix,
		Offset: cfg.Order.NumberOffset,
	}
	c.Registry = buildRegistry(cfg, c.ResponseRepo, codec)

	// Step 5: services
	c.OrderService = orderService.NewOrderService(c.OrderRepo, codec, orderService.LogNotifier{})
	c.PaymentService = paymentService.NewPaymentService(
		c.Registry, c.BasketRepo, c.OrderService, c.CallbackCache, codec, &cfg.App)
	c.RefundService = paymentService.NewRefundService(c.Registry, c.BasketRepo, c.OrderService)

	// Step 6: handlers
	c.PaymentHandler = paymentHandler.NewPaymentHandler(c.PaymentService, c.RefundService, c.ResponseRepo)

	logger.Info("Container initialized", map[string]interface{}{
		"environment": cfg.App.Environment,
	})

	return c, nil
}

func buildRegistry(cfg *config.Config, recorder gateway.Recorder, codec orderModel.NumberCodec) *gateway.Registry {
	var processors []gateway.PaymentProcessor

	if err := cfg.LiqPay.Validate(); err == nil {
		client := httpclient.New("liqpay", processorTimeout)
		processors = append(processors, liqpay.NewClient(&cfg.LiqPay, &cfg.App, client, recorder, codec))
	} else {
		logger.Warn("LiqPay disabled", map[string]interface{}{"reason": err.Error()})
	}

	if err := cfg.Fondy.Validate(); err == nil {
		client := httpclient.New("fondy", processorTimeout)
		processors = append(processors, fondy.NewClient(&cfg.Fondy, &cfg.App, client, recorder, codec))
	} else {
		logger.Warn("Fondy disabled", map[string]interface{}{"reason": err.Error()})
	}

	if err := cfg.Portmone.Validate(); err == nil {
		client := httpclient.New("portmone", processorTimeout)
		processors = append(processors, portmone.NewClient(&cfg.Portmone, &cfg.App, client, recorder, codec))
	} else {
		logger.Warn("Portmone disabled", map[string]interface{}{"reason": err.Error()})
	}

	if err := cfg.PrivatParts.Validate(); err == nil {
		client := httpclient.New("privatparts", processorTimeout)
		processors = append(processors, privatparts.NewClient(&cfg.PrivatParts, &cfg.App, client, recorder, codec))
	} else {
		logger.Warn("PrivatParts disabled", map[string]interface{}{"reason": err.Error()})
	}

	return gateway.NewRegistry(processors...)
}

// Cleanup releases infrastructure connections, last-in first-out.
func (c *Container) Cleanup() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Error("failed to close redis connection", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
