package importacao

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrExtensaoNaoSuportada = errors.New("extensao de arquivo nao suportada")
	ErrDecodificacao        = errors.New("cannot decode")
	ErrLeitura              = errors.New("parse error")
	ErrArquivoVazio         = errors.New("arquivo sem cabecalho")
	ErrArquivoGrande        = errors.New("arquivo excede o tamanho maximo")
)

// LerConteudo consome r por inteiro, recusando arquivos acima de limite bytes.
func LerConteudo(r io.Reader, limite int64) ([]byte, error) {
	conteudo, err := io.ReadAll(io.LimitReader(r, limite+1))
	if err != nil {
		return nil, fmt.Errorf("ler arquivo: %w", err)
	}
	if int64(len(conteudo)) > limite {
		return nil, fmt.Errorf("%w: limite de %d bytes", ErrArquivoGrande, limite)
	}
	return conteudo, nil
}

// Tabela é o conteúdo bruto do arquivo: cabeçalho e linhas de dados como texto.
type Tabela struct {
	Cabecalho []string
	Linhas    [][]string
	Encoding  string
}

// Ler escolhe o leitor pela extensão de nome.
func Ler(nome string, conteudo []byte) (Tabela, error) {
	switch strings.ToLower(filepath.Ext(nome)) {
	case ".csv", ".txt":
		return lerCSV(conteudo)
	case ".xlsx", ".xlsm":
		return lerXLSX(conteudo)
	case ".xls":
		return lerXLS(conteudo)
	default:
		return Tabela{}, fmt.Errorf("%w: %q", ErrExtensaoNaoSuportada, filepath.Ext(nome))
	}
}

type tentativa struct {
	nome string
	enc  encoding.Encoding
}

// Ordem de tentativa das codificações do CSV.
var codificacoes = []tentativa{
	{"utf-8", nil},
	{"utf-8-sig", unicode.UTF8BOM},
	{"latin-1", charmap.ISO8859_1},
	{"cp1252", charmap.Windows1252},
}

// decodificar devolve o texto em UTF-8 e o nome da codificação aceita.
// Latin-1 decodifica qualquer byte; as codificações de 8 bits só são aceitas quando não
// geram controles C1, que em arquivos reais indicam aspas e travessões do cp1252.
// Bytes sem mapeamento no cp1252 encerram a tentativa com ErrDecodificacao.
func decodificar(conteudo []byte) (string, string, error) {
	for _, t := range codificacoes {
		switch t.nome {
		case "utf-8":
			if utf8.Valid(conteudo) && !bytes.HasPrefix(conteudo, []byte("\xef\xbb\xbf")) {
				return string(conteudo), t.nome, nil
			}
			continue
		case "utf-8-sig":
			if !utf8.Valid(conteudo) {
				continue
			}
		}

		texto, _, err := transform.Bytes(t.enc.NewDecoder(), conteudo)
		if err != nil {
			continue
		}
		if t.nome != "utf-8-sig" && (temControleC1(texto) || bytes.ContainsRune(texto, utf8.RuneError)) {
			continue
		}
		return string(texto), t.nome, nil
	}
	return "", "", ErrDecodificacao
}

func temControleC1(texto []byte) bool {
	for _, r := range string(texto) {
		if r >= 0x80 && r <= 0x9f {
			return true
		}
	}
	return false
}

// detectarDelimitador compara ';' e ',' na linha de cabeçalho.
func detectarDelimitador(texto string) rune {
	primeira := texto
	if i := strings.IndexAny(texto, "\r\n"); i >= 0 {
		primeira = texto[:i]
	}
	if strings.Count(primeira, ";") >= strings.Count(primeira, ",") && strings.Contains(primeira, ";") {
		return ';'
	}
	return ','
}

func lerCSV(conteudo []byte) (Tabela, error) {
	texto, nomeEncoding, err := decodificar(conteudo)
	if err != nil {
		return Tabela{}, err
	}

	r := csv.NewReader(strings.NewReader(texto))
	r.Comma = detectarDelimitador(texto)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var linhas [][]string
	for {
		registro, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Tabela{}, fmt.Errorf("%w: %v", ErrLeitura, err)
		}
		linhas = append(linhas, registro)
	}

	t, err := montarTabela(linhas)
	t.Encoding = nomeEncoding
	return t, err
}

func lerXLSX(conteudo []byte) (Tabela, error) {
	f, err := excelize.OpenReader(bytes.NewReader(conteudo))
	if err != nil {
		return Tabela{}, fmt.Errorf("%w: %v", ErrLeitura, err)
	}
	defer f.Close()

	planilhas := f.GetSheetList()
	if len(planilhas) == 0 {
		return Tabela{}, fmt.Errorf("%w: planilha ausente", ErrLeitura)
	}
	// Valores crus: datas chegam como serial do Excel e números sem formatação regional.
	linhas, err := f.GetRows(planilhas[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return Tabela{}, fmt.Errorf("%w: %v", ErrLeitura, err)
	}
	return montarTabela(linhas)
}

func lerXLS(conteudo []byte) (Tabela, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(conteudo))
	if err != nil {
		// Arquivos .xls salvos como xlsx são comuns.
		if t, errX := lerXLSX(conteudo); errX == nil {
			return t, nil
		}
		return Tabela{}, fmt.Errorf("%w: %v", ErrLeitura, err)
	}
	if len(workbook.GetSheets()) == 0 {
		return Tabela{}, fmt.Errorf("%w: planilha ausente", ErrLeitura)
	}
	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return Tabela{}, fmt.Errorf("%w: %v", ErrLeitura, err)
	}

	var linhas [][]string
	for _, row := range sheet.GetRows() {
		var valores []string
		for _, cell := range row.GetCols() {
			valores = append(valores, cell.GetString())
		}
		linhas = append(linhas, valores)
	}
	return montarTabela(linhas)
}

// montarTabela usa a primeira linha como cabeçalho; em branco, a planilha é tratada como vazia.
// Linhas em branco no fim são descartadas.
func montarTabela(linhas [][]string) (Tabela, error) {
	for len(linhas) > 0 && linhaVazia(linhas[len(linhas)-1]) {
		linhas = linhas[:len(linhas)-1]
	}
	if len(linhas) == 0 || linhaVazia(linhas[0]) {
		return Tabela{}, ErrArquivoVazio
	}
	cabecalho := make([]string, len(linhas[0]))
	for i, c := range linhas[0] {
		cabecalho[i] = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
	}
	return Tabela{Cabecalho: cabecalho, Linhas: linhas[1:]}, nil
}

func linhaVazia(linha []string) bool {
	for _, c := range linha {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
