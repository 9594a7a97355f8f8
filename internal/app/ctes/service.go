// Pacote ctes implementa o ciclo de vida do CT-e: criação, atualização parcial, baixa e consultas.
package ctes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/marcelojr/gestao-ctes/internal/domain"
)

var (
	ErrCTeInvalido       = errors.New("cte invalido")
	ErrCTeDuplicado      = errors.New("cte duplicado")
	ErrCTeNaoEncontrado  = errors.New("cte nao encontrado")
	ErrBaixaJaRegistrada = errors.New("baixa ja registrada")
)

// PrefixoBaixa marca a nota anexada à observação no registro do pagamento.
const PrefixoBaixa = "BAIXA: "

type Service struct {
	repo   domain.CTeRepository
	clock  domain.Clock
	regras domain.Regras
	log    *slog.Logger
}

func NewService(repo domain.CTeRepository, clock domain.Clock, regras domain.Regras, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, clock: clock, regras: regras, log: log}
}

func (s *Service) hoje() time.Time {
	return domain.Dia(s.clock.Agora())
}

// Criar valida e grava um CT-e a partir de um objeto com as chaves canônicas.
func (s *Service) Criar(ctx context.Context, dados map[string]any) (domain.CTe, error) {
	c := domain.CTe{OrigemDados: domain.OrigemSistema}
	_, erros := Aplicar(&c, dados)
	if _, ok := dados[CampoValorTotal]; !ok {
		erros = append(erros, MsgValorObrigatorio)
	}

	if err := c.Validar(s.hoje(), s.regras); err != nil {
		var ev *domain.ErroValidacao
		if errors.As(err, &ev) {
			erros = append(erros, ev.Mensagens...)
		}
	}
	if len(erros) > 0 {
		return domain.CTe{}, fmt.Errorf("%w: %w", ErrCTeInvalido, &domain.ErroValidacao{Mensagens: erros})
	}

	agora := s.clock.Agora()
	c.CreatedAt = agora
	c.UpdatedAt = agora

	if err := s.repo.Create(ctx, &c); err != nil {
		if errors.Is(err, domain.ErrDuplicado) {
			return domain.CTe{}, MensagemDuplicado(c.NumeroCTe)
		}
		return domain.CTe{}, err
	}

	s.log.Info("cte criado", "numero_cte", c.NumeroCTe, "id", c.ID, "origem", c.OrigemDados)
	return c, nil
}

// TextoDuplicado é a mensagem de unicidade exibida ao usuário.
func TextoDuplicado(numero int64) string {
	return fmt.Sprintf("CTE %d já existe", numero)
}

func MensagemDuplicado(numero int64) error {
	return fmt.Errorf("%w: %s", ErrCTeDuplicado, TextoDuplicado(numero))
}

// Atualizar aplica somente os campos reconhecidos presentes em dados e renova updated_at,
// mesmo quando nenhum campo reconhecido foi enviado.
func (s *Service) Atualizar(ctx context.Context, id domain.CTeID, dados map[string]any) (domain.CTe, error) {
	atual, err := s.buscar(ctx, id)
	if err != nil {
		return domain.CTe{}, err
	}

	colunas, erros := Aplicar(&atual, dados)
	if err := atual.Validar(s.hoje(), s.regras); err != nil {
		var ev *domain.ErroValidacao
		if errors.As(err, &ev) {
			erros = append(erros, ev.Mensagens...)
		}
	}
	if len(erros) > 0 {
		return domain.CTe{}, fmt.Errorf("%w: %w", ErrCTeInvalido, &domain.ErroValidacao{Mensagens: erros})
	}

	atual.UpdatedAt = s.clock.Agora()
	if err := s.repo.Update(ctx, atual, colunas); err != nil {
		return domain.CTe{}, s.traduzir(err, atual.NumeroCTe)
	}
	return atual, nil
}

// RegistrarBaixa grava a data de pagamento; uma baixa existente não é sobrescrita.
func (s *Service) RegistrarBaixa(ctx context.Context, id domain.CTeID, data time.Time, nota string) (domain.CTe, error) {
	atual, err := s.buscar(ctx, id)
	if err != nil {
		return domain.CTe{}, err
	}
	if atual.HasBaixa() {
		return domain.CTe{}, fmt.Errorf("%w: CTE %d baixado em %s", ErrBaixaJaRegistrada, atual.NumeroCTe, atual.DataBaixa.Format("2006-01-02"))
	}

	dia := domain.Dia(data)
	atual.DataBaixa = &dia
	colunas := []string{CampoDataBaixa}

	if nota = strings.TrimSpace(nota); nota != "" {
		obs := PrefixoBaixa + nota
		if atual.Observacao != nil && *atual.Observacao != "" {
			obs = *atual.Observacao + "\n" + obs
		}
		atual.Observacao = &obs
		colunas = append(colunas, CampoObservacao)
	}

	if err := atual.Validar(s.hoje(), s.regras); err != nil {
		return domain.CTe{}, fmt.Errorf("%w: %w", ErrCTeInvalido, err)
	}

	atual.UpdatedAt = s.clock.Agora()
	if err := s.repo.Update(ctx, atual, colunas); err != nil {
		return domain.CTe{}, s.traduzir(err, atual.NumeroCTe)
	}

	s.log.Info("baixa registrada", "numero_cte", atual.NumeroCTe, "data_baixa", dia.Format("2006-01-02"))
	return atual, nil
}

// BuscarPorNumero devolve ErrCTeNaoEncontrado quando o número não existe.
func (s *Service) BuscarPorNumero(ctx context.Context, numero int64) (domain.CTe, error) {
	c, err := s.repo.FindByNumero(ctx, numero)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.CTe{}, ErrCTeNaoEncontrado
		}
		return domain.CTe{}, err
	}
	return c, nil
}

// NumerosExistentes consulta em lote quais números já foram gravados.
func (s *Service) NumerosExistentes(ctx context.Context, numeros []int64) (map[int64]struct{}, error) {
	if len(numeros) == 0 {
		return map[int64]struct{}{}, nil
	}
	return s.repo.NumerosExistentes(ctx, numeros)
}

func (s *Service) Excluir(ctx context.Context, id domain.CTeID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrCTeNaoEncontrado
		}
		return err
	}
	s.log.Info("cte removido", "id", id)
	return nil
}

func (s *Service) buscar(ctx context.Context, id domain.CTeID) (domain.CTe, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.CTe{}, ErrCTeNaoEncontrado
		}
		return domain.CTe{}, err
	}
	return c, nil
}

func (s *Service) traduzir(err error, numero int64) error {
	switch {
	case errors.Is(err, domain.ErrDuplicado):
		return MensagemDuplicado(numero)
	case errors.Is(err, domain.ErrNotFound):
		return ErrCTeNaoEncontrado
	default:
		return err
	}
}
