package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"camwatch/internal/repository/sqlite"
	"camwatch/internal/services/recorder"
	"camwatch/internal/services/storage"
)

func main() {
	dbPath := flag.String("db", "data/camwatch.db", "Database path")
	imagesDir := flag.String("images", "", "Optional directory of snapshots to import")
	recordingsDir := flag.String("recordings", "", "Optional directory of segment sidecars to import into a fresh database")
	flag.Parse()

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	conn, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	version, err := sqlite.Migrate(conn.DB)
	conn.Close()
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	fmt.Printf("Database %s at schema version %d\n", *dbPath, version)

	if *imagesDir == "" && *recordingsDir == "" {
		return
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *recordingsDir != "" {
		imported, skipped := importSegments(sqlite.NewSegmentRepository(db), *recordingsDir)
		fmt.Printf("Imported %d segment(s) from %s\n", imported, *recordingsDir)
		if skipped > 0 {
			fmt.Printf("Skipped %d sidecar(s)\n", skipped)
		}
	}

	if *imagesDir == "" {
		return
	}

	imported, skipped := importSnapshots(sqlite.NewSnapshotRepository(db), *imagesDir)
	fmt.Printf("Imported %d snapshot(s) from %s\n", imported, *imagesDir)
	if skipped > 0 {
		fmt.Printf("Skipped %d file(s) (invalid name or errors)\n", skipped)
	}

	stats, err := sqlite.NewSnapshotRepository(db).Stats()
	if err == nil {
		fmt.Printf("\nDatabase statistics:\n")
		fmt.Printf("   Total snapshots: %d\n", stats.TotalSnapshots)
		fmt.Printf("   Total size: %d bytes\n", stats.TotalSizeBytes)
		for camera, count := range stats.PerCamera {
			fmt.Printf("   Camera %d: %d snapshot(s)\n", camera, count)
		}
	}
}

// importSnapshots registers existing snapshot files whose names follow the
// buffer's naming scheme.
func importSnapshots(repo *sqlite.SnapshotRepository, dir string) (imported, skipped int) {
	files, err := os.ReadDir(dir)
	if err != nil {
		log.Fatalf("Failed to read images directory: %v", err)
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".jpg" {
			continue
		}

		snap, err := storage.ParseSnapshotFilename(file.Name())
		if err != nil {
			log.Printf("Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		info, err := file.Info()
		if err != nil {
			log.Printf("Failed to get info for %s: %v", file.Name(), err)
			skipped++
			continue
		}

		snap.FilePath = filepath.Join(dir, file.Name())
		snap.FileSize = info.Size()
		if _, err := repo.Insert(&snap); err != nil {
			log.Printf("Failed to insert %s: %v", file.Name(), err)
			skipped++
			continue
		}
		imported++
	}
	return imported, skipped
}

// importSegments registers the sidecars the recorder left in dir.
func importSegments(repo *sqlite.SegmentRepository, dir string) (imported, skipped int) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		log.Fatalf("Failed to list recordings: %v", err)
	}

	for _, path := range paths {
		sidecar, err := recorder.ReadSidecar(path)
		if err != nil {
			log.Printf("Skipping %s: %v", path, err)
			skipped++
			continue
		}
		if _, err := repo.Insert(sidecar.Segment(path)); err != nil {
			log.Printf("Failed to insert %s: %v", path, err)
			skipped++
			continue
		}
		imported++
	}
	return imported, skipped
}
