package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/crm-engine/internal/ai"
	"github.com/ignite/crm-engine/internal/api"
	"github.com/ignite/crm-engine/internal/bus"
	"github.com/ignite/crm-engine/internal/config"
	"github.com/ignite/crm-engine/internal/repository/memory"
	"github.com/ignite/crm-engine/internal/repository/postgres"
	engine "github.com/ignite/crm-engine/internal/segment"
	campaignsvc "github.com/ignite/crm-engine/internal/service/campaign"
	customersvc "github.com/ignite/crm-engine/internal/service/customer"
	deliverysvc "github.com/ignite/crm-engine/internal/service/delivery"
	segmentsvc "github.com/ignite/crm-engine/internal/service/segment"
	"github.com/ignite/crm-engine/internal/transmit"
)

// repositories groups the per-service data access implementations so the
// postgres and in-memory backends wire identically.
type repositories struct {
	customers customersvc.Repository
	segments  segmentsvc.Repository
	campaigns campaignsvc.Repository
	delivery  deliverysvc.Repository
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("[Server] loading config: %v", err)
	}

	ctx := context.Background()

	repos, cleanup, err := buildRepositories(ctx, cfg)
	if err != nil {
		log.Fatalf("[Server] storage: %v", err)
	}
	defer cleanup()

	eventBus, err := buildBus(cfg)
	if err != nil {
		log.Fatalf("[Server] bus: %v", err)
	}
	defer eventBus.Close()

	transmitter, err := buildTransmitter(ctx, cfg)
	if err != nil {
		log.Fatalf("[Server] transmitter: %v", err)
	}

	var completer ai.Completer
	if cfg.AI.Enabled {
		bedrock, err := ai.NewBedrock(ctx, cfg.AI.Region, cfg.AI.ModelID)
		if err != nil {
			log.Printf("[Server] Bedrock unavailable, running fallback-only assists: %v", err)
		} else {
			completer = bedrock
		}
	}
	assist := ai.NewAssist(completer)

	eval := engine.New(engine.Options{EmptyGroupMatchesAll: cfg.EmptyGroupMatchesAll()})

	customers := customersvc.NewService(repos.customers, eventBus)
	customersvc.NewConsumer(customers).Attach(eventBus)

	segments := segmentsvc.NewService(repos.segments, repos.customers, eval)

	deliveries := deliverysvc.NewService(repos.delivery)
	deliverysvc.NewConsumer(deliveries).Attach(eventBus)

	dispatcher := campaignsvc.NewDispatcher(repos.campaigns, segments, transmitter, eventBus,
		campaignsvc.DispatchOptions{BatchSize: cfg.Dispatch.BatchSize, BatchDelay: cfg.Dispatch.BatchDelay()})
	campaigns := campaignsvc.NewService(repos.campaigns, segments, dispatcher)

	server := api.NewServer(cfg.Server, &api.Handlers{
		Customers: customers,
		Segments:  segments,
		Campaigns: campaigns,
		Delivery:  deliveries,
		Assist:    assist,
		Bus:       eventBus,
	})

	go func() {
		log.Printf("[Server] listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.Start(); err != nil {
			log.Fatalf("[Server] listener: %v", err)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done

	log.Println("[Server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] shutdown: %v", err)
	}
	// Let in-flight campaign runs finish their batches before the process
	// exits; receipts for them would otherwise be lost with the bus.
	dispatcher.Wait()
	log.Println("[Server] bye")
}

// buildRepositories selects Postgres when a URL is configured, otherwise the
// in-memory store (optionally seeded with demo data).
func buildRepositories(ctx context.Context, cfg *config.Config) (repositories, func(), error) {
	if cfg.Database.URL == "" {
		store := memory.NewStore()
		if cfg.Database.SeedDemo {
			if err := store.Seed(ctx); err != nil {
				return repositories{}, nil, err
			}
			log.Println("[Server] in-memory store seeded with demo data")
		}
		return repositories{
			customers: store,
			segments:  store,
			campaigns: store,
			delivery:  store,
		}, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return repositories{}, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return repositories{}, nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	log.Println("[Server] connected to PostgreSQL")

	return repositories{
		customers: postgres.NewCustomerRepo(db),
		segments:  postgres.NewSegmentRepo(db),
		campaigns: postgres.NewCampaignRepo(db),
		delivery:  postgres.NewDeliveryRepo(db),
	}, func() { db.Close() }, nil
}

// buildBus selects Redis pub/sub when an address is configured, otherwise
// the in-process bus.
func buildBus(cfg *config.Config) (bus.Bus, error) {
	if cfg.Redis.Addr == "" {
		log.Println("[Server] using in-process event bus")
		return bus.NewMemoryBus(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	log.Printf("[Server] using Redis event bus at %s", cfg.Redis.Addr)
	return bus.NewRedisBus(client), nil
}

func buildTransmitter(ctx context.Context, cfg *config.Config) (transmit.Transmitter, error) {
	switch cfg.Transmit.Vendor {
	case "ses":
		return transmit.NewSESTransmitter(ctx, cfg.Transmit.SES)
	case "http":
		return transmit.NewVendorTransmitter(cfg.Transmit.VendorURL), nil
	default:
		seed := cfg.Transmit.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return transmit.NewSimulator(cfg.Transmit.SuccessRate, seed), nil
	}
}
