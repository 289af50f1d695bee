package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/cbtpro/cbtpro-backend/internal/config"
	"github.com/cbtpro/cbtpro-backend/internal/database"
	"github.com/cbtpro/cbtpro-backend/internal/logger"
	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/repository"
	"github.com/cbtpro/cbtpro-backend/internal/service"
	"github.com/google/uuid"
)

type seedQuestion struct {
	text    string
	typ     model.QuestionType
	options []string
	correct any
	points  int
}

var demoQuestions = []seedQuestion{
	{"Ibu kota Indonesia adalah ...", model.QuestionTypeMultipleChoice, []string{"A. Bandung", "B. Jakarta", "C. Surabaya", "D. Medan"}, "B", 2},
	{"Hasil dari 7 x 8 adalah ...", model.QuestionTypeMultipleChoice, []string{"A. 54", "B. 56", "C. 58", "D. 64"}, "B", 2},
	{"Planet terbesar di tata surya adalah ...", model.QuestionTypeMultipleChoice, []string{"A. Mars", "B. Saturnus", "C. Jupiter", "D. Bumi"}, "C", 2},
	{"Urutkan kata berikut menjadi kalimat yang benar.", model.QuestionTypeSentenceOrder, []string{"sekolah", "pergi", "Saya", "ke"}, []string{"Saya", "pergi", "ke", "sekolah"}, 3},
	{"Jelaskan proses fotosintesis secara singkat.", model.QuestionTypeEssay, nil, "Tumbuhan mengubah cahaya menjadi energi kimia.", 5},
}

func main() {
	email := flag.String("email", "guru@demo.cbtpro.id", "Demo teacher email")
	password := flag.String("password", "guru123", "Demo teacher password")
	token := flag.String("token", "DEMO01", "Exam token for the demo exam")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	teacherRepo := repository.NewTeacherRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	sessionRepo := repository.NewExamSessionRepository(pool)

	userService := service.NewUserService(userRepo, teacherRepo, service.NewAuthService(cfg), log)
	questionService := service.NewQuestionService(questionRepo, service.NewQuotaService(teacherRepo, questionRepo))
	examService := service.NewExamService(examRepo, questionRepo, sessionRepo, log)

	fmt.Println("=== Seeding Demo Teacher ===")

	school := "SMA Demo CBT Pro"
	reg, err := userService.Register(ctx, &model.RegisterRequest{
		Email:      *email,
		Password:   *password,
		FirstName:  "Guru",
		LastName:   "Demo",
		SchoolName: &school,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			fmt.Printf("Teacher %s already exists. Nothing to do.\n", *email)
			return
		}
		log.Fatal().Err(err).Msg("Failed to register demo teacher")
	}
	if err := userService.Approve(ctx, reg.UserID); err != nil {
		log.Fatal().Err(err).Msg("Failed to approve demo teacher")
	}
	fmt.Printf("Created and approved teacher %s (%s)\n", *email, reg.UserID)

	ids := make([]uuid.UUID, 0, len(demoQuestions))
	for i, sq := range demoQuestions {
		correct, _ := json.Marshal(sq.correct)
		points := sq.points
		q, err := questionService.Create(ctx, reg.UserID, &model.CreateQuestionRequest{
			QuestionText:  sq.text,
			QuestionType:  sq.typ,
			Options:       sq.options,
			CorrectAnswer: correct,
			Points:        &points,
		})
		if err != nil {
			log.Fatal().Err(err).Int("index", i).Msg("Failed to create question")
		}
		ids = append(ids, q.ID)
	}
	fmt.Printf("Created %d questions\n", len(ids))

	exam, err := examService.Create(ctx, reg.UserID, &model.CreateExamRequest{
		Title:           "Ujian Demo",
		DurationMinutes: 30,
		Token:           *token,
		QuestionIDs:     ids,
		Settings:        model.ExamSettings{ShuffleQuestions: true, ShuffleOptions: true},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create demo exam")
	}

	fmt.Printf("\nSeed completed! Exam %q (%s) is open with token %s.\n", exam.Title, exam.ID, exam.Token)
}
