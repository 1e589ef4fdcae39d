//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/grandline-hms/service-reservation/internal/allocator"
	"github.com/grandline-hms/service-reservation/internal/application"
	resevents "github.com/grandline-hms/service-reservation/internal/events"
	"github.com/grandline-hms/service-reservation/internal/platform/kafka"
	"github.com/grandline-hms/service-reservation/internal/pricing"
	"github.com/grandline-hms/service-reservation/internal/repository"
	"github.com/grandline-hms/service-reservation/internal/saga"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// reservationStack holds the wired-up reservation engine components.
type reservationStack struct {
	Bookings        *application.BookingService
	Loyalty         *application.LoyaltyService
	Rooms           *application.RoomService
	Waitlist        *application.WaitlistService
	Consumer        *resevents.AvailabilityConsumer
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	// Start PostgreSQL container with log-based wait strategy.
	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_reservation",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_reservation sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(
		&repository.GuestModel{},
		&repository.RoomUnitModel{},
		&repository.ReservationModel{},
		&repository.RoomAssignmentModel{},
		&repository.AddOnLineModel{},
		&repository.PaymentRecordModel{},
		&repository.LoyaltyAccountModel{},
		&repository.LoyaltyTransactionModel{},
		&repository.WaitlistEntryModel{},
	))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers,
		resevents.TopicInventoryEvents,
		resevents.TopicReservationEvents,
		resevents.TopicActivityEvents,
	)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupReservationStack wires up the full reservation engine stack against
// real Postgres and Kafka.
func setupReservationStack(t *testing.T, db *gorm.DB, brokers []string) *reservationStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	producer := kafka.NewProducer(brokers, logger)
	publisher := resevents.NewPublisher(producer, logger)
	pricer := pricing.NewEngine(pricing.DefaultConfig())

	reservationRepo := repository.NewReservationRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	guestRepo := repository.NewGuestRepository(db)
	loyaltyRepo := repository.NewLoyaltyRepository(db)
	waitlistRepo := repository.NewWaitlistRepository(db)

	alloc := allocator.New(roomRepo, pricer, publisher, logger)
	loyaltyCfg := application.DefaultLoyaltyConfig()
	sagaSvc := saga.NewBookingSagaService(reservationRepo, loyaltyRepo, alloc, pricer, publisher, publisher,
		loyaltyCfg.EarnRate, loyaltyCfg.ConversionRate, loyaltyCfg.RedemptionCap, logger)

	bookingSvc := application.NewBookingService(reservationRepo, guestRepo, pricer, sagaSvc, publisher, publisher, logger)
	loyaltySvc := application.NewLoyaltyService(loyaltyRepo, guestRepo, publisher, loyaltyCfg, logger)
	roomSvc := application.NewRoomService(roomRepo, alloc, pricer, publisher, logger)
	waitlistSvc := application.NewWaitlistService(waitlistRepo, guestRepo, publisher, logger)

	groupID := fmt.Sprintf("test-reservation-%s", uuid.New().String()[:8])
	consumer := resevents.NewAvailabilityConsumer(brokers, groupID, waitlistSvc, logger)

	return &reservationStack{
		Bookings:        bookingSvc,
		Loyalty:         loyaltySvc,
		Rooms:           roomSvc,
		Waitlist:        waitlistSvc,
		Consumer:        consumer,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// seedRooms registers room units through the room service and returns their DTOs.
func seedRooms(t *testing.T, stack *reservationStack, roomType string, numbers ...string) []application.RoomDTO {
	t.Helper()
	out := make([]application.RoomDTO, len(numbers))
	for i, number := range numbers {
		dto, err := stack.Rooms.CreateRoom(context.Background(), "admin@test", application.CreateRoomRequest{
			Number: number,
			Type:   roomType,
		})
		require.NoError(t, err, "failed to seed room %s", number)
		out[i] = *dto
	}
	return out
}

// waitForReservationStatus polls the reservations table until the status matches.
func waitForReservationStatus(t *testing.T, db *gorm.DB, id uuid.UUID, expectedStatus string, timeout time.Duration) repository.ReservationModel {
	t.Helper()
	var result repository.ReservationModel
	require.Eventually(t, func() bool {
		var model repository.ReservationModel
		if err := db.Where("id = ?", id).First(&model).Error; err != nil {
			return false
		}
		if model.Status == expectedStatus {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "reservation did not transition to %s", expectedStatus)
	return result
}

// waitForWaitlistNotified polls the waitlist table until the entry is flagged.
func waitForWaitlistNotified(t *testing.T, db *gorm.DB, id uuid.UUID, timeout time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool {
		var model repository.WaitlistEntryModel
		if err := db.Where("id = ?", id).First(&model).Error; err != nil {
			return false
		}
		return model.Notified
	}, timeout, 200*time.Millisecond, "waitlist entry was not notified")
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
