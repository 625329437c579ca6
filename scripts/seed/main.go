// Command seed provisions the initial admin account and a default contract
// template so a fresh installation is usable immediately.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/secretaria-online/secretaria-api/pkg/config"
	"github.com/secretaria-online/secretaria-api/pkg/database"
)

const defaultTemplate = `<h1>Contrato de Matricula</h1>
<p>{{institutionName}}</p>
<p>Aluno: {{studentName}} (matricula {{studentID}}, CPF {{cpf}})</p>
<p>Curso: {{courseName}}</p>
<p>Periodo: {{semester}}/{{year}}</p>
<p>Data: {{currentDate}}</p>`

func main() {
	email := flag.String("email", "admin@secretaria.local", "admin email")
	password := flag.String("password", "", "admin password (required)")
	name := flag.String("name", "Administrador", "admin full name")
	flag.Parse()

	if *password == "" {
		log.Fatal("the -password flag is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'ADMIN', true, $5, $5)
		ON CONFLICT (email) DO NOTHING`,
		uuid.NewString(), *email, string(hash), *name, now)
	if err != nil {
		log.Fatalf("failed to seed admin user: %v", err)
	}
	if rows, _ := res.RowsAffected(); rows > 0 {
		log.Printf("admin user %s created", *email)
	} else {
		log.Printf("admin user %s already exists, skipped", *email)
	}

	var templates int
	if err := db.GetContext(ctx, &templates, `SELECT COUNT(*) FROM contract_templates`); err != nil {
		log.Fatalf("failed to count contract templates: %v", err)
	}
	if templates == 0 {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO contract_templates (id, name, content, active, created_at, updated_at)
			VALUES ($1, 'Contrato padrao', $2, true, $3, $3)`,
			uuid.NewString(), defaultTemplate, now); err != nil {
			log.Fatalf("failed to seed contract template: %v", err)
		}
		log.Print("default contract template created")
	}
}
