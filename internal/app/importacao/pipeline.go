// Pacote importacao carrega planilhas de CT-es: leitura, mapeamento de colunas, normalização,
// validação, partição entre novos e existentes e gravação em lotes.
package importacao

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/marcelojr/gestao-ctes/internal/app/ctes"
	"github.com/marcelojr/gestao-ctes/internal/domain"
	"github.com/marcelojr/gestao-ctes/internal/platform/metrics"
	"github.com/marcelojr/gestao-ctes/internal/platform/validacao"
)

const (
	ModoInserir = "inserir"
	ModoAlterar = "alterar"
	ModoUpsert  = "upsert"

	TamanhoLotePadrao = 500
)

// Opcoes controla uma importação; valores zerados recebem os padrões do pipeline.
type Opcoes struct {
	Modo        string `json:"modo" validate:"oneof=inserir alterar upsert"`
	TamanhoLote int    `json:"lote" validate:"gte=1,lte=5000"`
	Origem      string `json:"origem" validate:"max=50"`
}

type Pipeline struct {
	repo       domain.CTeRepository
	clock      domain.Clock
	regras     domain.Regras
	log        *slog.Logger
	lotePadrao int
}

func NewPipeline(repo domain.CTeRepository, clock domain.Clock, regras domain.Regras, log *slog.Logger, lotePadrao int) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if lotePadrao <= 0 {
		lotePadrao = TamanhoLotePadrao
	}
	return &Pipeline{repo: repo, clock: clock, regras: regras, log: log, lotePadrao: lotePadrao}
}

// registro é uma linha normalizada; dados guarda só as células preenchidas.
type registro struct {
	linha          int
	cte            domain.CTe
	dados          map[string]any
	errosConversao []string
}

type operacao struct {
	reg   registro
	atual *domain.CTe
}

// Importar sempre devolve um relatório. O erro só vem preenchido quando o arquivo ou as
// opções impedem qualquer gravação; nesse caso nada foi alterado no banco.
func (p *Pipeline) Importar(ctx context.Context, nome string, conteudo []byte, opcoes Opcoes) (res Resultado, err error) {
	inicio := time.Now()
	opcoes = p.completar(nome, opcoes)

	res = novoResultado(nome)
	res.Statistics.Insertion.Mode = opcoes.Modo
	defer func() {
		res.Statistics.ElapsedSeconds = math.Round(time.Since(inicio).Seconds()*1000) / 1000
		metrics.ObserveImportDuration(opcoes.Modo, time.Since(inicio).Seconds())
	}()

	if err = validacao.Struct(opcoes); err != nil {
		return falhar(&res, err)
	}

	tabela, err := Ler(nome, conteudo)
	if err != nil {
		return falhar(&res, err)
	}
	res.Statistics.File.Encoding = tabela.Encoding

	mapeamento, err := MapearColunas(tabela.Cabecalho)
	res.Statistics.File.IgnoredColumns = mapeamento.Ignoradas
	if err != nil {
		return falhar(&res, err)
	}

	registros := p.normalizar(tabela, mapeamento, opcoes.Origem, &res)
	validos := p.validar(registros, &res)

	var ops []operacao
	if opcoes.Modo == ModoInserir {
		ops, err = p.particionarNovos(ctx, validos, &res)
	} else {
		ops, err = p.particionarAtualizacao(ctx, validos, opcoes.Modo, &res)
	}
	if err != nil {
		return falhar(&res, fmt.Errorf("consultar existentes: %w", err))
	}

	p.gravar(ctx, ops, opcoes.TamanhoLote, &res)
	p.registrarMetricas(&res)

	p.log.Info("importacao concluida",
		"arquivo", nome,
		"modo", opcoes.Modo,
		"linhas", res.Statistics.File.RowsTotal,
		"validas", res.Statistics.Processing.RowsValid,
		"novos", res.Statistics.Analysis.New,
		"existentes", res.Statistics.Analysis.Existing,
		"gravados", res.Statistics.Insertion.Succeeded,
		"erros", res.Statistics.Insertion.Errored,
	)
	return res, nil
}

// ModoValido aceita o modo em branco, que vira inserir.
func ModoValido(modo string) bool {
	switch modo {
	case "", ModoInserir, ModoAlterar, ModoUpsert:
		return true
	}
	return false
}

func (p *Pipeline) completar(nome string, o Opcoes) Opcoes {
	if o.Modo == "" {
		o.Modo = ModoInserir
	}
	if o.TamanhoLote == 0 {
		o.TamanhoLote = p.lotePadrao
	}
	if strings.TrimSpace(o.Origem) == "" {
		switch strings.ToLower(filepath.Ext(nome)) {
		case ".xlsx", ".xlsm", ".xls":
			o.Origem = domain.OrigemPlanilha
		default:
			o.Origem = domain.OrigemImportacao
		}
	}
	return o
}

func falhar(res *Resultado, err error) (Resultado, error) {
	res.Success = false
	res.Error = err.Error()
	return *res, err
}

// normalizar converte as células e descarta linhas sem os campos obrigatórios.
func (p *Pipeline) normalizar(t Tabela, m Mapeamento, origem string, res *Resultado) []registro {
	registros := make([]registro, 0, len(t.Linhas))
	for i, linha := range t.Linhas {
		if linhaVazia(linha) {
			continue
		}
		res.Statistics.File.RowsTotal++

		dados := make(map[string]any, len(m.Indices))
		for campo, idx := range m.Indices {
			if idx >= len(linha) {
				continue
			}
			if v := strings.TrimSpace(linha[idx]); v != "" {
				dados[campo] = v
			}
		}
		if len(ctes.CamposFaltantes(dados)) > 0 {
			res.Statistics.Processing.RowsDiscarded++
			continue
		}

		c := domain.CTe{OrigemDados: origem}
		colunas, erros := ctes.Aplicar(&c, dados)
		if !contem(colunas, ctes.CampoNumeroCTe) || !contem(colunas, ctes.CampoValorTotal) {
			res.Statistics.Processing.RowsDiscarded++
			continue
		}

		registros = append(registros, registro{
			linha:          i + 2,
			cte:            c,
			dados:          dados,
			errosConversao: erros,
		})
	}
	return registros
}

func (p *Pipeline) validar(registros []registro, res *Resultado) []registro {
	hoje := domain.Dia(p.clock.Agora())
	validos := registros[:0]
	for _, r := range registros {
		msgs := append(append([]string(nil), r.errosConversao...), r.cte.Violacoes(hoje, p.regras)...)
		if len(msgs) > 0 {
			res.adicionarErroValidacao(ErroLinha{Linha: r.linha, NumeroCTe: r.cte.NumeroCTe, Erros: msgs})
			continue
		}
		validos = append(validos, r)
	}
	res.Statistics.Processing.RowsValid = len(validos)
	return validos
}

func numerosUnicos(registros []registro) []int64 {
	vistos := make(map[int64]struct{}, len(registros))
	numeros := make([]int64, 0, len(registros))
	for _, r := range registros {
		if _, ok := vistos[r.cte.NumeroCTe]; ok {
			continue
		}
		vistos[r.cte.NumeroCTe] = struct{}{}
		numeros = append(numeros, r.cte.NumeroCTe)
	}
	return numeros
}

// duplicadoInterno marca repetições dentro do arquivo; a primeira ocorrência segue.
func duplicadoInterno(vistos map[int64]struct{}, numero int64, res *Resultado) bool {
	if _, ok := vistos[numero]; ok {
		if !contemNumero(res.Statistics.Analysis.InternalDuplicates, numero) {
			res.Statistics.Analysis.InternalDuplicates = append(res.Statistics.Analysis.InternalDuplicates, numero)
		}
		return true
	}
	vistos[numero] = struct{}{}
	return false
}

func (p *Pipeline) particionarNovos(ctx context.Context, validos []registro, res *Resultado) ([]operacao, error) {
	existentes, err := p.repo.NumerosExistentes(ctx, numerosUnicos(validos))
	if err != nil {
		return nil, err
	}

	vistos := make(map[int64]struct{}, len(validos))
	ops := make([]operacao, 0, len(validos))
	for _, r := range validos {
		if duplicadoInterno(vistos, r.cte.NumeroCTe, res) {
			continue
		}
		if _, ok := existentes[r.cte.NumeroCTe]; ok {
			res.Statistics.Analysis.Existing++
			continue
		}
		res.Statistics.Analysis.New++
		ops = append(ops, operacao{reg: r})
	}
	return ops, nil
}

// particionarAtualizacao separa linhas que alteram registros gravados das ausentes;
// ausentes só viram inserção no modo upsert.
func (p *Pipeline) particionarAtualizacao(ctx context.Context, validos []registro, modo string, res *Resultado) ([]operacao, error) {
	atuais, err := p.repo.FindByNumeros(ctx, numerosUnicos(validos))
	if err != nil {
		return nil, err
	}

	vistos := make(map[int64]struct{}, len(validos))
	ops := make([]operacao, 0, len(validos))
	for _, r := range validos {
		if duplicadoInterno(vistos, r.cte.NumeroCTe, res) {
			continue
		}
		if atual, ok := atuais[r.cte.NumeroCTe]; ok {
			res.Statistics.Analysis.Existing++
			atual := atual
			ops = append(ops, operacao{reg: r, atual: &atual})
			continue
		}
		res.Statistics.Analysis.New++
		if modo == ModoUpsert {
			ops = append(ops, operacao{reg: r})
			continue
		}
		res.adicionarDetalhe(DetalheLinha{
			Linha:     r.linha,
			NumeroCTe: r.cte.NumeroCTe,
			Status:    StatusIgnorado,
			Mensagem:  fmt.Sprintf("CTE %d não encontrado", r.cte.NumeroCTe),
		})
	}
	return ops, nil
}

// gravar confirma um lote por transação; lotes já confirmados permanecem se o contexto cair.
func (p *Pipeline) gravar(ctx context.Context, ops []operacao, tamanho int, res *Resultado) {
	res.Success = true
	for inicio := 0; inicio < len(ops); inicio += tamanho {
		if err := ctx.Err(); err != nil {
			res.Success = false
			res.Error = fmt.Sprintf("importação interrompida: %v", err)
			p.log.Warn("importacao interrompida", "linhas_pendentes", len(ops)-inicio, "erro", err)
			return
		}
		fim := inicio + tamanho
		if fim > len(ops) {
			fim = len(ops)
		}
		for _, d := range p.executarLote(ctx, ops[inicio:fim]) {
			res.adicionarDetalhe(d)
		}
	}
}

func (p *Pipeline) executarLote(ctx context.Context, lote []operacao) []DetalheLinha {
	agora := p.clock.Agora()
	detalhes := make([]DetalheLinha, len(lote))

	err := p.repo.WithinTx(ctx, func(tx domain.CTeRepository) error {
		for i, op := range lote {
			detalhes[i] = p.executar(ctx, tx, op, agora)
		}
		return ctx.Err()
	})
	if err != nil {
		p.log.Warn("lote de importacao desfeito", "linhas", len(lote), "erro", err)
		for i := range detalhes {
			if detalhes[i].Status == StatusErro {
				continue
			}
			detalhes[i].Status = StatusErro
			detalhes[i].Mensagem = fmt.Sprintf("lote desfeito: %v", err)
		}
	}
	return detalhes
}

func (p *Pipeline) executar(ctx context.Context, tx domain.CTeRepository, op operacao, agora time.Time) DetalheLinha {
	d := DetalheLinha{Linha: op.reg.linha, NumeroCTe: op.reg.cte.NumeroCTe}

	if op.atual == nil {
		c := op.reg.cte
		c.CreatedAt = agora
		c.UpdatedAt = agora
		if err := tx.Create(ctx, &c); err != nil {
			d.Status = StatusErro
			d.Mensagem = mensagemGravacao(err, c.NumeroCTe)
			return d
		}
		d.Status = StatusInserido
		return d
	}

	atual := *op.atual
	colunas, _ := ctes.Aplicar(&atual, op.reg.dados)
	colunas = remover(colunas, ctes.CampoNumeroCTe)
	atual.OrigemDados = domain.OrigemAtualizacao
	colunas = append(colunas, ctes.CampoOrigemDados)

	if msgs := atual.Violacoes(domain.Dia(agora), p.regras); len(msgs) > 0 {
		d.Status = StatusErro
		d.Mensagem = strings.Join(msgs, "; ")
		return d
	}
	atual.UpdatedAt = agora
	if err := tx.Update(ctx, atual, colunas); err != nil {
		d.Status = StatusErro
		d.Mensagem = mensagemGravacao(err, atual.NumeroCTe)
		return d
	}
	d.Status = StatusAtualizado
	return d
}

func mensagemGravacao(err error, numero int64) string {
	if errors.Is(err, domain.ErrDuplicado) {
		return ctes.TextoDuplicado(numero)
	}
	return err.Error()
}

func (p *Pipeline) registrarMetricas(res *Resultado) {
	ins := res.Statistics.Insertion
	metrics.AddImportRows("inserido", ins.Succeeded-ins.Updated)
	metrics.AddImportRows("atualizado", ins.Updated)
	metrics.AddImportRows("ignorado", ins.Ignored)
	metrics.AddImportRows("erro", ins.Errored)
	metrics.AddImportRows("descartado", res.Statistics.Processing.RowsDiscarded)
	metrics.AddImportRows("invalido", res.Statistics.Processing.RowsInvalid)
	if ins.Mode == ModoInserir {
		metrics.AddImportRows("existente", res.Statistics.Analysis.Existing)
	}
}

func contem(lista []string, v string) bool {
	for _, item := range lista {
		if item == v {
			return true
		}
	}
	return false
}

func contemNumero(lista []int64, v int64) bool {
	for _, item := range lista {
		if item == v {
			return true
		}
	}
	return false
}

func remover(lista []string, v string) []string {
	out := lista[:0]
	for _, item := range lista {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
