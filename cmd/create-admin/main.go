package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/cbtpro/cbtpro-backend/internal/config"
	"github.com/cbtpro/cbtpro-backend/internal/database"
	"github.com/cbtpro/cbtpro-backend/internal/logger"
	"github.com/cbtpro/cbtpro-backend/internal/model"
	"github.com/cbtpro/cbtpro-backend/internal/repository"
	"github.com/cbtpro/cbtpro-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	userService := service.NewUserService(
		repository.NewUserRepository(pool),
		repository.NewTeacherRepository(pool),
		service.NewAuthService(cfg),
		log,
	)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create Account ===")

	fmt.Print("Role (superadmin/teacher) [superadmin]: ")
	role, _ := reader.ReadString('\n')
	role = strings.TrimSpace(role)
	if role == "" {
		role = string(model.RoleSuperadmin)
	}
	if role != string(model.RoleSuperadmin) && role != string(model.RoleTeacher) {
		fmt.Println("Error: Role must be superadmin or teacher")
		return
	}

	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	password, ok := readPassword("Enter Password: ")
	if !ok {
		return
	}
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}
	confirm, ok := readPassword("Confirm Password: ")
	if !ok {
		return
	}
	if confirm != password {
		fmt.Println("Error: Passwords do not match")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	if role == string(model.RoleTeacher) {
		createTeacher(ctx, reader, userService, email, password)
		return
	}

	created, err := userService.EnsureSuperadmin(ctx, email, password)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create superadmin")
	}
	if !created {
		fmt.Printf("\nAn account with email '%s' already exists. Nothing changed.\n", email)
		return
	}

	fmt.Printf("\nSuccess! Superadmin '%s' created.\n", email)
}

// createTeacher registers a teacher and approves it straight away.
func createTeacher(ctx context.Context, reader *bufio.Reader, userService *service.UserService, email, password string) {
	fmt.Print("Enter First Name: ")
	first, _ := reader.ReadString('\n')
	fmt.Print("Enter Last Name: ")
	last, _ := reader.ReadString('\n')
	fmt.Print("Enter School Name (optional): ")
	school, _ := reader.ReadString('\n')

	req := &model.RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: strings.TrimSpace(first),
		LastName:  strings.TrimSpace(last),
	}
	if req.FirstName == "" || req.LastName == "" {
		fmt.Println("Error: First and last name are required")
		return
	}
	if s := strings.TrimSpace(school); s != "" {
		req.SchoolName = &s
	}

	reg, err := userService.Register(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			fmt.Printf("\nAn account with email '%s' already exists. Nothing changed.\n", email)
			return
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if err := userService.Approve(ctx, reg.UserID); err != nil {
		fmt.Printf("Error approving teacher: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nSuccess! Teacher '%s' created and activated.\n", email)
}

func readPassword(prompt string) (string, bool) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // Newline after password input
	if err != nil {
		fmt.Println("Error reading password")
		return "", false
	}
	return string(b), true
}
