package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agape-api/internal/forms"
)

const intakeYAML = `
cadastro_aluno:
  dados_pessoais:
    - {nome: nome_completo, label: Nome completo, tipo: text, obrigatorio: true}
    - {nome: data_nascimento, label: Data de nascimento, tipo: date, obrigatorio: true, data_minima: "2000-01-01"}
    - {nome: rg, label: RG, tipo: text}
    - {nome: cpf, label: CPF, tipo: text}
    - {nome: genero, label: Gênero, tipo: select, opcoes: [Feminino, Masculino, Outro]}
    - {nome: periodo, label: Período escolar, tipo: select, opcoes: [Manhã, Tarde]}
  responsaveis:
    - {nome: nome_resp1, label: Responsável, tipo: text}
    - {nome: contato_resp1, label: Contato do responsável, tipo: text}
  socioeconomico:
    - {nome: vulnerabilidades, label: Vulnerabilidades, tipo: multiselect, opcoes: [Nenhuma, Fome, Moradia, Violência]}
    - {nome: medicacao_continua, label: Medicação contínua, tipo: radio_com_detalhe}
`

var fixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func intakeSchema(t *testing.T) *forms.Schema {
	t.Helper()
	schema, err := forms.Parse([]byte(intakeYAML))
	require.NoError(t, err)
	return schema
}

func anaAnswers() map[string]interface{} {
	return map[string]interface{}{
		"nome_completo":      "Ana Souza",
		"data_nascimento":    "2012-05-04",
		"cpf":                "123.456.789-00",
		"genero":             "Feminino",
		"periodo":            "Manhã",
		"nome_resp1":         "Maria Souza",
		"contato_resp1":      "(11) 99999-0000",
		"vulnerabilidades":   []interface{}{"Fome"},
		"medicacao_continua": "Não",
	}
}

func fixedClock() time.Time { return fixedNow }
