package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/nasidaunjeruk/pos/internal/settings"
	"github.com/nasidaunjeruk/pos/internal/storage"
)

func main() {
	_ = godotenv.Load()

	// CLI flags
	ownerPIN := flag.String("owner-pin", "", "Owner PIN (4-8 digits)")
	cashierPIN := flag.String("cashier-pin", "", "Cashier PIN (optional)")
	storeName := flag.String("store-name", "", "Store name printed on receipts")
	scriptURL := flag.String("script-url", "", "Spreadsheet sync endpoint")
	force := flag.Bool("force", false, "Overwrite PINs that are already set")
	flag.Parse()

	// Fall back to environment variables
	if *ownerPIN == "" {
		*ownerPIN = os.Getenv("SEED_OWNER_PIN")
	}
	if *cashierPIN == "" {
		*cashierPIN = os.Getenv("SEED_CASHIER_PIN")
	}
	if *storeName == "" {
		*storeName = os.Getenv("SEED_STORE_NAME")
	}
	if *scriptURL == "" {
		*scriptURL = os.Getenv("SYNC_URL")
	}

	// Fall back to defaults
	if *ownerPIN == "" {
		*ownerPIN = "123456"
		log.Println("WARNING: Using default owner PIN '123456'. Change immediately in production!")
	}

	driver := os.Getenv("STORAGE_DRIVER")
	if driver == "" {
		driver = enum.StorageDriverFile
	}
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	ctx := context.Background()
	store, closeStore, err := storage.Open(ctx, storage.Options{
		Driver:      driver,
		DataDir:     dataDir,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		MySQLDSN:    os.Getenv("MYSQL_DSN"),
	})
	if err != nil {
		log.Fatalf("Unable to open storage: %v", err)
	}
	defer closeStore()
	log.Printf("Connected to %s storage", driver)

	svc := settings.NewService(store)
	if err := svc.Load(ctx); err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	var patch settings.Patch
	if *storeName != "" {
		patch.StoreName = storeName
	}
	if *scriptURL != "" {
		patch.ScriptURL = scriptURL
	}
	if _, err := svc.Update(ctx, patch); err != nil {
		log.Fatalf("Failed to save settings: %v", err)
	}

	if err := seedPIN(ctx, svc, enum.UserRoleOwner, *ownerPIN, svc.Get().OwnerPINHash != "", *force); err != nil {
		log.Fatalf("Failed to seed owner PIN: %v", err)
	}
	if *cashierPIN != "" {
		if err := seedPIN(ctx, svc, enum.UserRoleCashier, *cashierPIN, svc.Get().CashierPINHash != "", *force); err != nil {
			log.Fatalf("Failed to seed cashier PIN: %v", err)
		}
	}

	log.Println("Seed completed successfully")
	log.Printf("Store: %s", svc.Get().StoreName)
}

// seedPIN sets the PIN for role unless one exists and force is false.
func seedPIN(ctx context.Context, svc *settings.Service, role, pin string, exists, force bool) error {
	if exists && !force {
		log.Printf("%s PIN already set, skipping (use -force to overwrite)", role)
		return nil
	}
	if err := svc.SetPIN(ctx, role, pin); err != nil {
		return err
	}
	log.Printf("%s PIN set", role)
	return nil
}
