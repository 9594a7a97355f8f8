// Pacote validacao expõe um validador go-playground único, com mensagens em português
// e nomes de campo tirados da tag json.
package validacao

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var ErrRequisicaoInvalida = errors.New("requisicao invalida")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Erro lista as mensagens de cada campo rejeitado.
type Erro struct {
	Campos    []string
	Mensagens []string
}

func (e *Erro) Error() string {
	if len(e.Mensagens) == 0 {
		return "validacao falhou"
	}
	return strings.Join(e.Mensagens, "; ")
}

func (e *Erro) Unwrap() error { return ErrRequisicaoInvalida }

func instancia() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			nome := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if nome == "" || nome == "-" {
				return fld.Name
			}
			return nome
		})
	})
	return validate
}

// Struct valida s e devolve *Erro quando alguma regra falha.
func Struct(s any) error {
	err := instancia().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrRequisicaoInvalida, err)
	}

	resultado := &Erro{}
	for _, fe := range fieldErrs {
		resultado.Campos = append(resultado.Campos, fe.Field())
		resultado.Mensagens = append(resultado.Mensagens, traduzir(fe))
	}
	return resultado
}

var mensagens = map[string]string{
	"required": "%s é obrigatório",
	"min":      "%s deve ser no mínimo %s",
	"max":      "%s deve ser no máximo %s",
	"gte":      "%s deve ser maior ou igual a %s",
	"lte":      "%s deve ser menor ou igual a %s",
	"oneof":    "%s deve ser um de: %s",
}

func traduzir(fe validator.FieldError) string {
	tpl, ok := mensagens[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s inválido (%s)", fe.Field(), fe.Tag())
	}
	if strings.Count(tpl, "%s") == 1 {
		return fmt.Sprintf(tpl, fe.Field())
	}
	return fmt.Sprintf(tpl, fe.Field(), fe.Param())
}
