// Pacote worker processa as importações enfileiradas e publica o relatório de cada job.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcelojr/gestao-ctes/internal/app/importacao"
	"github.com/marcelojr/gestao-ctes/internal/domain"
)

const (
	SituacaoPendente  = "pendente"
	SituacaoConcluida = "concluida"
	SituacaoFalhou    = "falhou"
)

// Situacao é o documento gravado no ResultadoStore ao fim de cada job.
type Situacao struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	Arquivo       string               `json:"arquivo"`
	EnfileiradoEm time.Time            `json:"enfileirado_em"`
	ConcluidoEm   time.Time            `json:"concluido_em"`
	Resultado     importacao.Resultado `json:"resultado"`
}

type Importador interface {
	Importar(ctx context.Context, nome string, conteudo []byte, opcoes importacao.Opcoes) (importacao.Resultado, error)
}

type ImportProcessor struct {
	importador Importador
	store      domain.ResultadoStore
	clock      domain.Clock
	log        *slog.Logger
}

func NewImportProcessor(importador Importador, store domain.ResultadoStore, clock domain.Clock, log *slog.Logger) *ImportProcessor {
	if log == nil {
		log = slog.Default()
	}
	return &ImportProcessor{importador: importador, store: store, clock: clock, log: log}
}

// Process roda o pipeline e grava o relatório. Erro de leitura do arquivo fica no relatório;
// só falha de gravação no store volta como erro.
func (p *ImportProcessor) Process(ctx context.Context, job domain.JobImportacao) error {
	res, err := p.importador.Importar(ctx, job.NomeArquivo, job.Conteudo, importacao.Opcoes{
		Modo:        job.Modo,
		TamanhoLote: job.Lote,
		Origem:      job.Origem,
	})

	situacao := Situacao{
		ID:            job.ID,
		Status:        SituacaoConcluida,
		Arquivo:       job.NomeArquivo,
		EnfileiradoEm: job.EnfileiradoEm,
		ConcluidoEm:   p.clock.Agora().UTC(),
		Resultado:     res,
	}
	if err != nil {
		situacao.Status = SituacaoFalhou
		p.log.Warn("importacao assincrona falhou", "job", job.ID, "arquivo", job.NomeArquivo, "err", err)
	}

	payload, err := json.Marshal(situacao)
	if err != nil {
		return fmt.Errorf("worker: serializar resultado %s: %w", job.ID, err)
	}
	// O relatório precisa ser gravado mesmo se o job foi interrompido no meio.
	if err := p.store.Salvar(context.WithoutCancel(ctx), job.ID, payload); err != nil {
		return fmt.Errorf("worker: salvar resultado %s: %w", job.ID, err)
	}

	p.log.Info("job de importacao processado",
		"job", job.ID,
		"status", situacao.Status,
		"espera_seconds", situacao.ConcluidoEm.Sub(job.EnfileiradoEm).Seconds(),
	)
	return nil
}
