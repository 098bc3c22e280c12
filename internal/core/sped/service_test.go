package sped

import (
	"errors"
	"strings"
	"testing"

	"github.com/LuisEduardoPedra/apuraDifal/internal/domain"
	"golang.org/x/text/encoding/charmap"
)

const arquivoExemplo = `|0000|017|0|01072025|31072025|EMPRESA TESTE LTDA|12345678000190||GO|123456789|5208707|||A|0|
|0150|FORN01|FORNECEDOR SP LTDA|01058|98765432000188||123456789|3550308|||RUA X|
|0200|ITM001|PARAFUSO SEXTAVADO ACO 10MM|||UN|07|73181500|
|0200|ITM002|PRODUTO NAO CADASTRADO|||UN|07||
|C100|0|1|FORN01|55|00|1|000123|35250798765432000188550010000001231000000123|01072025|02072025|2500,00|
|C170|1|ITM001|PARAFUSO COMPL|10|UN|1000,00|0|0|000|2556|U999|
|C170|2|ITM002|CADEIRA GIRATORIA ESCRITORIO|1|UN|800,00|0|0|020|2551|U999|
|C170|3|ITM003|MATERIA PRIMA|5|UN|500,00|0|0|000|1101|U999|
|9999|9|
`

func TestParseFile(t *testing.T) {
	svc := NewService()

	arquivo, err := svc.ParseFile(strings.NewReader(arquivoExemplo))
	if err != nil {
		t.Fatalf("Erro inesperado no parse: %v", err)
	}

	t.Run("Cabeçalho e período", func(t *testing.T) {
		if arquivo.DadosEmpresa.RazaoSocial != "EMPRESA TESTE LTDA" {
			t.Errorf("Razão social incorreta: %q", arquivo.DadosEmpresa.RazaoSocial)
		}
		if arquivo.DadosEmpresa.Cnpj != "12345678000190" {
			t.Errorf("CNPJ incorreto: %q", arquivo.DadosEmpresa.Cnpj)
		}
		if arquivo.DadosEmpresa.Uf != "GO" {
			t.Errorf("UF incorreta: %q", arquivo.DadosEmpresa.Uf)
		}
		if arquivo.PeriodoApuracao != "01/07/2025 a 31/07/2025" {
			t.Errorf("Período incorreto: %q", arquivo.PeriodoApuracao)
		}
	})

	t.Run("Somente CFOPs de DIFAL viram itens", func(t *testing.T) {
		if len(arquivo.ItensDifal) != 2 {
			t.Fatalf("Esperava 2 itens, obteve %d", len(arquivo.ItensDifal))
		}
		if arquivo.ItensDifal[0].Cfop != "2556" || arquivo.ItensDifal[0].Destinacao != domain.DestinacaoUsoConsumo {
			t.Errorf("Primeiro item incorreto: %+v", arquivo.ItensDifal[0])
		}
		if arquivo.ItensDifal[1].Cfop != "2551" || arquivo.ItensDifal[1].Destinacao != domain.DestinacaoAtivoImobilizado {
			t.Errorf("Segundo item incorreto: %+v", arquivo.ItensDifal[1])
		}
		if arquivo.ItensDifal[0].VlItem != 1000 {
			t.Errorf("Valor do primeiro item incorreto: %v", arquivo.ItensDifal[0].VlItem)
		}
	})

	t.Run("Descrição cadastral preferida sobre a complementar", func(t *testing.T) {
		item := arquivo.ItensDifal[0]
		if item.DescricaoCadastral != "PARAFUSO SEXTAVADO ACO 10MM" {
			t.Errorf("Descrição cadastral incorreta: %q", item.DescricaoCadastral)
		}
		if item.Descricao() != "PARAFUSO SEXTAVADO ACO 10MM" {
			t.Errorf("Descrição resolvida incorreta: %q", item.Descricao())
		}
		if item.Ncm != "73181500" {
			t.Errorf("NCM incorreto: %q", item.Ncm)
		}
	})

	t.Run("Sentinela de produto não cadastrado usa a complementar", func(t *testing.T) {
		item := arquivo.ItensDifal[1]
		if item.DescricaoCadastral != "" {
			t.Errorf("Descrição cadastral deveria ser vazia, obteve %q", item.DescricaoCadastral)
		}
		if item.Descricao() != "CADEIRA GIRATORIA ESCRITORIO" {
			t.Errorf("Descrição resolvida incorreta: %q", item.Descricao())
		}
	})

	t.Run("UF de origem vem do participante", func(t *testing.T) {
		for _, item := range arquivo.ItensDifal {
			if item.UfOrigem != "SP" {
				t.Errorf("Item %s: esperava UF de origem SP, obteve %q", item.CodItem, item.UfOrigem)
			}
		}
	})

	t.Run("CST 020 sinaliza benefício do documento", func(t *testing.T) {
		item := arquivo.ItensDifal[1]
		if item.BeneficiosFiscais == nil || !item.BeneficiosFiscais.TemBeneficio {
			t.Error("Esperava benefício do documento para CST 020")
		}
		if arquivo.ItensDifal[0].BeneficiosFiscais != nil {
			t.Error("CST 000 não deveria sinalizar benefício")
		}
	})

	t.Run("Estatísticas", func(t *testing.T) {
		stats := arquivo.Estatisticas
		if stats.TotalRegistros != 9 {
			t.Errorf("Esperava 9 registros, obteve %d", stats.TotalRegistros)
		}
		if stats.TiposRegistros != 6 {
			t.Errorf("Esperava 6 tipos de registro, obteve %d", stats.TiposRegistros)
		}
		if stats.ContagemPorTipo["C170"] != 3 {
			t.Errorf("Esperava 3 registros C170, obteve %d", stats.ContagemPorTipo["C170"])
		}
		if len(stats.Avisos) != 0 {
			t.Errorf("Não esperava avisos, obteve %v", stats.Avisos)
		}
	})
}

func TestParseFileErrosFatais(t *testing.T) {
	svc := NewService()

	t.Run("Arquivo vazio", func(t *testing.T) {
		_, err := svc.ParseFile(strings.NewReader("   \n  "))
		if !errors.Is(err, domain.ErrArquivoVazio) {
			t.Errorf("Esperava ErrArquivoVazio, obteve %v", err)
		}
	})

	t.Run("Sem registro 0000", func(t *testing.T) {
		conteudo := "|C100|0|1|FORN01|55|00|1|000123|chave|01072025|02072025|2500,00|\n|9999|2|\n"
		_, err := svc.ParseFile(strings.NewReader(conteudo))
		if !errors.Is(err, domain.ErrCabecalhoAusente) {
			t.Errorf("Esperava ErrCabecalhoAusente, obteve %v", err)
		}
	})
}

func TestParseFileAvisos(t *testing.T) {
	svc := NewService()

	t.Run("Totalizador 9999 divergente", func(t *testing.T) {
		conteudo := strings.Replace(arquivoExemplo, "|9999|9|", "|9999|42|", 1)
		arquivo, err := svc.ParseFile(strings.NewReader(conteudo))
		if err != nil {
			t.Fatalf("Divergência do 9999 não deveria ser fatal: %v", err)
		}
		if len(arquivo.Estatisticas.Avisos) != 1 || !strings.Contains(arquivo.Estatisticas.Avisos[0], "9999") {
			t.Errorf("Esperava aviso de totalizador divergente, obteve %v", arquivo.Estatisticas.Avisos)
		}
	})

	t.Run("C170 sem C100 é pulado com aviso", func(t *testing.T) {
		conteudo := "|0000|017|0|01072025|31072025|EMPRESA TESTE LTDA|12345678000190||GO|123456789|5208707|||A|0|\n" +
			"|C170|1|ITM001|PARAFUSO|10|UN|1000,00|0|0|000|2556|U999|\n"
		arquivo, err := svc.ParseFile(strings.NewReader(conteudo))
		if err != nil {
			t.Fatalf("Erro inesperado: %v", err)
		}
		if len(arquivo.ItensDifal) != 0 {
			t.Errorf("Não esperava itens, obteve %d", len(arquivo.ItensDifal))
		}
		if len(arquivo.Estatisticas.Avisos) == 0 || !strings.Contains(arquivo.Estatisticas.Avisos[0], "C170") {
			t.Errorf("Esperava aviso de C170 órfão, obteve %v", arquivo.Estatisticas.Avisos)
		}
	})

	t.Run("C100 malformado não herda o documento anterior", func(t *testing.T) {
		conteudo := "|0000|017|0|01072025|31072025|EMPRESA TESTE LTDA|12345678000190||GO|123456789|5208707|||A|0|\n" +
			"|0150|FORN01|FORNECEDOR SP LTDA|01058|98765432000188||123456789|3550308|||RUA X|\n" +
			"|C100|0|1|FORN01|55|00|1|000123|chave-doc-1|01072025|02072025|2500,00|\n" +
			"|C100|0|1|\n" +
			"|C170|1|ITM001|PARAFUSO|10|UN|1000,00|0|0|000|2556|U999|\n"
		arquivo, err := svc.ParseFile(strings.NewReader(conteudo))
		if err != nil {
			t.Fatalf("Erro inesperado: %v", err)
		}
		if len(arquivo.ItensDifal) != 0 {
			t.Errorf("C170 do documento malformado não deveria virar item: %+v", arquivo.ItensDifal)
		}
		avisos := strings.Join(arquivo.Estatisticas.Avisos, "\n")
		if !strings.Contains(avisos, "C100") || !strings.Contains(avisos, "C170 sem C100") {
			t.Errorf("Esperava avisos de C100 malformado e C170 órfão, obteve %v", arquivo.Estatisticas.Avisos)
		}
	})

	t.Run("Registro conhecido com poucos campos é pulado", func(t *testing.T) {
		conteudo := "|0000|017|0|01072025|31072025|EMPRESA TESTE LTDA|12345678000190||GO|123456789|5208707|||A|0|\n" +
			"|0200|ITM001|\n"
		arquivo, err := svc.ParseFile(strings.NewReader(conteudo))
		if err != nil {
			t.Fatalf("Erro inesperado: %v", err)
		}
		if len(arquivo.Estatisticas.Avisos) == 0 {
			t.Error("Esperava aviso de registro malformado")
		}
	})

	t.Run("Linha sem delimitadores é ignorada", func(t *testing.T) {
		conteudo := "|0000|017|0|01072025|31072025|EMPRESA TESTE LTDA|12345678000190||GO|123456789|5208707|||A|0|\n" +
			"linha solta sem pipes\n"
		arquivo, err := svc.ParseFile(strings.NewReader(conteudo))
		if err != nil {
			t.Fatalf("Erro inesperado: %v", err)
		}
		if arquivo.Estatisticas.TotalRegistros != 1 {
			t.Errorf("Linha solta não deveria contar como registro: %d", arquivo.Estatisticas.TotalRegistros)
		}
		if len(arquivo.Estatisticas.Avisos) != 1 {
			t.Errorf("Esperava um aviso, obteve %v", arquivo.Estatisticas.Avisos)
		}
	})
}

func TestParseFileLatin1(t *testing.T) {
	svc := NewService()

	conteudo := strings.Replace(arquivoExemplo, "EMPRESA TESTE LTDA", "CONSTRUÇÕES GOIÁS LTDA", 1)
	latin1, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(conteudo))
	if err != nil {
		t.Fatalf("Erro ao preparar fixture Latin-1: %v", err)
	}

	arquivo, err := svc.ParseFile(strings.NewReader(string(latin1)))
	if err != nil {
		t.Fatalf("Erro inesperado no parse Latin-1: %v", err)
	}
	if arquivo.DadosEmpresa.RazaoSocial != "CONSTRUÇÕES GOIÁS LTDA" {
		t.Errorf("Razão social decodificada incorretamente: %q", arquivo.DadosEmpresa.RazaoSocial)
	}
}

func TestParseFileSnapshotsIndependentes(t *testing.T) {
	svc := NewService()

	primeiro, err := svc.ParseFile(strings.NewReader(arquivoExemplo))
	if err != nil {
		t.Fatalf("Erro inesperado: %v", err)
	}
	valorOriginal := primeiro.ItensDifal[0].VlItem

	segundo, err := svc.ParseFile(strings.NewReader(arquivoExemplo))
	if err != nil {
		t.Fatalf("Erro inesperado: %v", err)
	}
	segundo.ItensDifal[0].VlItem = 9999

	if primeiro.ItensDifal[0].VlItem != valorOriginal {
		t.Error("Novo parse não deveria afetar o snapshot anterior")
	}
}
