package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Quick operational check of the reports table.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Fatal("Error loading .env file")
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_SSLMODE"),
		os.Getenv("DB_TIMEZONE"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	fmt.Println("✅ Connected to database")
	fmt.Println()

	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_name = 'reports'
		)
	`
	if err := db.Raw(query).Scan(&exists).Error; err != nil {
		log.Fatal("Failed to check reports table:", err)
	}

	fmt.Printf("📊 Reports table exists: %v\n", exists)
	fmt.Println()

	if !exists {
		fmt.Println("❌ Reports table does NOT exist!")
		fmt.Println("⚠️  Run the server once to apply migrations")
		return
	}

	type StatusStats struct {
		Total    int64
		Pending  int64
		Analyzed int64
		Failed   int64
	}
	var stats StatusStats
	query = `
		SELECT
			COUNT(*) as total,
			COUNT(CASE WHEN status = 'pending' THEN 1 END) as pending,
			COUNT(CASE WHEN status = 'analyzed' THEN 1 END) as analyzed,
			COUNT(CASE WHEN status = 'failed' THEN 1 END) as failed
		FROM reports
	`
	if err := db.Raw(query).Scan(&stats).Error; err != nil {
		log.Fatal("Failed to get statistics:", err)
	}

	fmt.Println("📈 Report Status Statistics:")
	fmt.Printf("  - Total reports: %d\n", stats.Total)
	fmt.Printf("  - pending: %d\n", stats.Pending)
	fmt.Printf("  - analyzed: %d\n", stats.Analyzed)
	fmt.Printf("  - failed: %d\n", stats.Failed)
	fmt.Println()

	type ReviewStats struct {
		Unreviewed int64
		Approved   int64
		Rejected   int64
	}
	var review ReviewStats
	query = `
		SELECT
			COUNT(CASE WHEN review_status = 'unreviewed' THEN 1 END) as unreviewed,
			COUNT(CASE WHEN review_status = 'approved' THEN 1 END) as approved,
			COUNT(CASE WHEN review_status = 'rejected' THEN 1 END) as rejected
		FROM reports
	`
	if err := db.Raw(query).Scan(&review).Error; err != nil {
		log.Fatal("Failed to get review statistics:", err)
	}

	fmt.Println("🧐 Review Status:")
	fmt.Printf("  - unreviewed: %d\n", review.Unreviewed)
	fmt.Printf("  - approved: %d\n", review.Approved)
	fmt.Printf("  - rejected: %d\n", review.Rejected)
	fmt.Println()

	type ReportInfo struct {
		ID           string
		Status       string
		Source       string
		ReviewStatus string
		CreatedAt    string
	}
	var reports []ReportInfo
	query = `
		SELECT id, status, source, review_status, created_at
		FROM reports
		ORDER BY created_at DESC
		LIMIT 10
	`
	if err := db.Raw(query).Scan(&reports).Error; err != nil {
		log.Fatal("Failed to get recent reports:", err)
	}

	fmt.Println("📄 Recent Reports (last 10):")
	for _, r := range reports {
		fmt.Printf("  - ID: %s, Status: %s, Source: %s, Review: %s, Created: %s\n",
			r.ID, r.Status, r.Source, r.ReviewStatus, r.CreatedAt)
	}
}
