// Pacote migrations centraliza as versões gormigrate aplicadas na inicialização.
package migrations

import (
	"fmt"

	gormigrate "github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/marcelojr/gestao-ctes/internal/domain"
)

func lista() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202501100001_create_ctes",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.CTe{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("ctes")
			},
		},
		{
			// Alertas e variações filtram por estas colunas com frequência.
			ID: "202502030001_index_etapas",
			Migrate: func(tx *gorm.DB) error {
				for _, stmt := range []string{
					"CREATE INDEX IF NOT EXISTS idx_ctes_envio_final ON ctes (envio_final)",
					"CREATE INDEX IF NOT EXISTS idx_ctes_data_atesto ON ctes (data_atesto)",
					"CREATE INDEX IF NOT EXISTS idx_ctes_data_baixa ON ctes (data_baixa)",
				} {
					if err := tx.Exec(stmt).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				for _, idx := range []string{"idx_ctes_envio_final", "idx_ctes_data_atesto", "idx_ctes_data_baixa"} {
					if err := tx.Exec("DROP INDEX IF EXISTS " + idx).Error; err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

func Run(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("migrations: db nulo")
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, lista())
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrations: falha ao aplicar: %w", err)
	}

	return nil
}

// RollbackLast desfaz a migração mais recente; usado pela CLI.
func RollbackLast(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("migrations: db nulo")
	}
	m := gormigrate.New(db, gormigrate.DefaultOptions, lista())
	if err := m.RollbackLast(); err != nil {
		return fmt.Errorf("migrations: falha no rollback: %w", err)
	}
	return nil
}
