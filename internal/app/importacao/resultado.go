package importacao

// LimiteDetalhes limita as listas por linha do relatório; os contadores continuam exatos.
const LimiteDetalhes = 200

const (
	StatusInserido   = "inserido"
	StatusAtualizado = "atualizado"
	StatusIgnorado   = "ignorado"
	StatusErro       = "erro"
)

// Resultado é o relatório devolvido por toda importação, inclusive as que falham na leitura.
type Resultado struct {
	Success    bool         `json:"success"`
	Statistics Estatisticas `json:"statistics"`
	Error      string       `json:"error,omitempty"`
}

type Estatisticas struct {
	File           EstatisticaArquivo  `json:"file"`
	Processing     EstatisticaProcesso `json:"processing"`
	Analysis       EstatisticaAnalise  `json:"analysis"`
	Insertion      EstatisticaInsercao `json:"insertion"`
	ElapsedSeconds float64             `json:"elapsed_seconds"`
}

type EstatisticaArquivo struct {
	Name           string   `json:"name"`
	RowsTotal      int      `json:"rows_total"`
	Encoding       string   `json:"encoding,omitempty"`
	IgnoredColumns []string `json:"ignored_columns,omitempty"`
}

type EstatisticaProcesso struct {
	RowsValid        int         `json:"rows_valid"`
	RowsDiscarded    int         `json:"rows_discarded"`
	RowsInvalid      int         `json:"rows_invalid"`
	ValidationErrors []ErroLinha `json:"validation_errors"`
}

type EstatisticaAnalise struct {
	New                int     `json:"new"`
	Existing           int     `json:"existing"`
	InternalDuplicates []int64 `json:"internal_duplicates"`
}

type EstatisticaInsercao struct {
	Mode      string         `json:"mode"`
	Processed int            `json:"processed"`
	Succeeded int            `json:"succeeded"`
	Errored   int            `json:"errored"`
	Updated   int            `json:"updated"`
	Ignored   int            `json:"ignored"`
	Details   []DetalheLinha `json:"details"`
}

// ErroLinha identifica a linha do arquivo (cabeçalho = 1) e as regras violadas.
type ErroLinha struct {
	Linha     int      `json:"linha"`
	NumeroCTe int64    `json:"numero_cte,omitempty"`
	Erros     []string `json:"erros"`
}

type DetalheLinha struct {
	Linha     int    `json:"linha"`
	NumeroCTe int64  `json:"numero_cte"`
	Status    string `json:"status"`
	Mensagem  string `json:"mensagem,omitempty"`
}

func novoResultado(nome string) Resultado {
	return Resultado{
		Statistics: Estatisticas{
			File:       EstatisticaArquivo{Name: nome},
			Processing: EstatisticaProcesso{ValidationErrors: []ErroLinha{}},
			Analysis:   EstatisticaAnalise{InternalDuplicates: []int64{}},
			Insertion:  EstatisticaInsercao{Details: []DetalheLinha{}},
		},
	}
}

func (r *Resultado) adicionarErroValidacao(e ErroLinha) {
	r.Statistics.Processing.RowsInvalid++
	if len(r.Statistics.Processing.ValidationErrors) < LimiteDetalhes {
		r.Statistics.Processing.ValidationErrors = append(r.Statistics.Processing.ValidationErrors, e)
	}
}

func (r *Resultado) adicionarDetalhe(d DetalheLinha) {
	ins := &r.Statistics.Insertion
	ins.Processed++
	switch d.Status {
	case StatusInserido:
		ins.Succeeded++
	case StatusAtualizado:
		ins.Succeeded++
		ins.Updated++
	case StatusIgnorado:
		ins.Ignored++
	case StatusErro:
		ins.Errored++
	}
	if len(ins.Details) < LimiteDetalhes {
		ins.Details = append(ins.Details, d)
	}
}
