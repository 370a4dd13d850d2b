package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/trainhub/training-platform/internal/config"
	"github.com/trainhub/training-platform/internal/db"
	"github.com/trainhub/training-platform/internal/handlers"
	"github.com/trainhub/training-platform/internal/model"
	"github.com/trainhub/training-platform/internal/repository"
	"github.com/trainhub/training-platform/internal/service"
)

func main() {
	// 1. Подхватываем .env, если он есть; иначе работаем от окружения.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// 2. Подключаемся к БД через GORM.
	gormDB, err := db.NewGormDB(&cfg.DB)
	if err != nil {
		log.Fatalf("init db: %v", err)
	}

	// 3. Миграции моделей.
	if err := model.AutoMigrate(gormDB); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatalf("sql DB: %v", err)
	}
	defer sqlDB.Close()

	// 4. Репозитории (реализации на GORM).
	serviceRepo := repository.NewGormServiceRepository(gormDB)
	bookingRepo := repository.NewGormBookingRepository(gormDB)
	planRepo := repository.NewGormPlanRecordRepository(gormDB)
	eventRepo := repository.NewGormEventRepository(gormDB)

	// 5. Синхронизатор расписаний и движок бронирований.
	scheduleSync := service.NewScheduleSynchronizer(bookingRepo, planRepo)
	bookingSvc := service.NewBookingService(serviceRepo, bookingRepo, planRepo, eventRepo, scheduleSync)

	// 6. HTTP-сервер.
	app := fiber.New()
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	handlers.RegisterRoutes(app, handlers.NewBookingHandler(bookingSvc))

	// 7. Запускаем сервер в горутине.
	go func() {
		log.Printf("booking engine listening on %s", cfg.Server.Port)
		if err := app.Listen(cfg.Server.Port); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	// 8. Грейсфул-шатдаун по сигналу.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down http server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
