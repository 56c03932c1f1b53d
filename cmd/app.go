package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/config"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/database"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/eims"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/model"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/parsers"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/processors"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/security"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/services"
)

// app holds the wired services shared by the commands.
type app struct {
	db          *sql.DB
	invoiceRepo *model.InvoiceRepository
	gateway     *eims.Client
	reconciler  *services.Reconciler
	invoices    services.InvoiceService
	payments    services.PaymentService
	settlements services.SettlementService
	imports     services.ImportService
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Cfg

	database.InitDB(cfg.DatabasePath)
	db := database.DB

	box, err := security.NewSecretBox(cfg.SettingsEncryptionKey)
	if err != nil {
		return nil, err
	}
	settings := model.NewSettingsRepository(db, box)
	if err := seedSettings(ctx, settings); err != nil {
		return nil, err
	}

	tokens := eims.NewTokenManager(eims.TokenManagerConfig{
		BaseURL:    cfg.EIMSBaseURL,
		Margin:     cfg.EIMSTokenExpiryMargin,
		RefreshTTL: cfg.EIMSRefreshTokenTTL,
	}, cache.New(cache.NoExpiration, 10*time.Minute), credentialsFrom(settings))

	gateway := eims.NewClient(eims.Config{
		BaseURL:    cfg.EIMSBaseURL,
		APIVersion: cfg.EIMSAPIVersion,
		Timeout:    cfg.EIMSTimeout,
	}, tokens)

	calculator, err := processors.NewSettlementProcessor(cfg.VATRate)
	if err != nil {
		return nil, err
	}

	invoiceRepo := model.NewInvoiceRepository(db)
	receiptRepo := model.NewReceiptRepository(db)
	alerts := services.NewAlertService()

	reconciler := services.NewReconciler(services.ReconcilerConfig{
		MaxRetries: cfg.EIMSMaxRetries,
		MaxBackoff: cfg.EIMSRateLimitMaxDelay,
	}, invoiceRepo, gateway, alerts)
	settlements := services.NewSettlementService(model.NewSettlementRepository(db))
	invoices := services.NewInvoiceService(services.InvoiceServiceConfig{
		DefaultCommissionRate: cfg.DefaultCommissionRate,
		Currency:              cfg.Currency,
	}, reconciler, invoiceRepo, calculator, settings, settlements, receiptRepo)

	return &app{
		db:          db,
		invoiceRepo: invoiceRepo,
		gateway:     gateway,
		reconciler:  reconciler,
		invoices:    invoices,
		payments:    services.NewPaymentService(invoiceRepo, receiptRepo, settings, gateway, alerts, cfg.Currency),
		settlements: settlements,
		imports:     services.NewImportService(parsers.NewCSVParser(), invoices),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// seedSettings writes the seller identity from the environment when one is
// configured. Without EIMS_SELLER_TIN the stored settings are left untouched.
func seedSettings(ctx context.Context, repo *model.SettingsRepository) error {
	cfg := config.Cfg
	if cfg.SellerTIN == "" {
		if _, err := repo.Get(ctx); errors.Is(err, model.ErrSettingsNotConfigured) {
			logger.L.Warn("EIMS seller settings are not configured; invoicing is disabled until EIMS_SELLER_TIN is set")
		}
		return nil
	}
	err := repo.Save(ctx, &models.Settings{
		SellerTIN:    cfg.SellerTIN,
		LegalName:    cfg.SellerLegalName,
		Phone:        cfg.SellerPhone,
		Email:        cfg.SellerEmail,
		Region:       cfg.SellerRegion,
		City:         cfg.SellerCity,
		SystemNumber: cfg.SystemNumber,
		SystemType:   cfg.SystemType,
		ClientID:     cfg.EIMSClientID,
		ClientSecret: cfg.EIMSClientSecret,
		APIKey:       cfg.EIMSAPIKey,
	})
	if err != nil {
		return fmt.Errorf("seed EIMS settings: %w", err)
	}
	logger.L.Info("EIMS seller settings loaded from environment", "sellerTIN", cfg.SellerTIN)
	return nil
}

func credentialsFrom(settings *model.SettingsRepository) eims.CredentialsFunc {
	return func(ctx context.Context) (eims.Credentials, error) {
		s, err := settings.Get(ctx)
		if err != nil {
			return eims.Credentials{}, err
		}
		return eims.Credentials{
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
			APIKey:       s.APIKey,
			TIN:          s.SellerTIN,
		}, nil
	}
}
