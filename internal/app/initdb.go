package app

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/zapticket/zapticket/internal/domain"
)

const (
	defaultAdminEmail    = "admin@zapticket.com"
	defaultAdminPassword = "zapticket"
)

// checkDefaultTenant seeds one tenant with an admin account, the starter
// routing queues and a default gateway instance, so a fresh install is
// usable immediately.
func (a *Application) checkDefaultTenant() {
	var count int64
	a.gormDB.Model(&domain.Tenant{}).Count(&count)
	if count > 0 {
		return
	}

	tenant := &domain.Tenant{
		ID:             uuid.NewString(),
		Name:           "Empresa Demo",
		DocumentNumber: "00000000000000",
		Status:         domain.TenantActive,
	}
	if err := a.gormDB.Create(tenant).Error; err != nil {
		zap.L().Error("failed to create default tenant", zap.Error(err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		zap.L().Error("failed to hash default admin password", zap.Error(err))
		return
	}
	if err := a.gormDB.Create(&domain.User{
		ID:           uuid.NewString(),
		TenantID:     tenant.ID,
		Name:         "Administrador",
		Email:        defaultAdminEmail,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}).Error; err != nil {
		zap.L().Error("failed to create default admin", zap.Error(err))
		return
	}

	queues := []domain.Queue{
		{ID: uuid.NewString(), TenantID: tenant.ID, Name: "Comercial", Color: "#2196f3",
			GreetingMessage: "Você está no atendimento comercial."},
		{ID: uuid.NewString(), TenantID: tenant.ID, Name: "Suporte", Color: "#4caf50",
			GreetingMessage: "Você está no atendimento de suporte."},
	}
	for i := range queues {
		if err := a.gormDB.Create(&queues[i]).Error; err != nil {
			zap.L().Error("failed to create default queue",
				zap.String("name", queues[i].Name), zap.Error(err))
		}
	}

	if err := a.gormDB.Create(&domain.Instance{
		ID:        uuid.NewString(),
		TenantID:  tenant.ID,
		Name:      "Principal",
		Status:    domain.InstanceDisconnected,
		IsDefault: true,
	}).Error; err != nil {
		zap.L().Error("failed to create default instance", zap.Error(err))
	}

	zap.L().Info("initialized default tenant",
		zap.String("tenant", tenant.Name),
		zap.String("admin", defaultAdminEmail))
}
