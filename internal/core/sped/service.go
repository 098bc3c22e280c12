// internal/core/sped/service.go
package sped

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/LuisEduardoPedra/apuraDifal/internal/domain"
	"golang.org/x/text/encoding/charmap"
)

// Service faz o parse de um arquivo SPED EFD ICMS/IPI e extrai os itens
// candidatos a DIFAL.
type Service interface {
	ParseFile(spedFile io.Reader) (*domain.ArquivoSped, error)
}

type service struct{}

func NewService() Service {
	return &service{}
}

// Quantidade mínima de campos por tipo de registro interpretado. Linhas de
// tipos conhecidos abaixo do mínimo são puladas com aviso; tipos não
// interpretados entram apenas nas estatísticas.
var camposMinimos = map[string]int{
	"0000": 10,
	"0150": 9,
	"0200": 9,
	"C100": 10,
	"C170": 12,
	"9999": 3,
}

// Descrição cadastral usada como sentinela de "produto não cadastrado";
// quando presente, vale a descrição complementar do C170.
const descricaoNaoCadastrado = "PRODUTO NAO CADASTRADO"

type produtoCadastro struct {
	descricao string
	ncm       string
}

type documentoAtual struct {
	numDoc   string
	chaveNfe string
	ufOrigem string
	entrada  bool
}

func (s *service) ParseFile(spedFile io.Reader) (*domain.ArquivoSped, error) {
	data, err := io.ReadAll(spedFile)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler SPED: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, domain.ErrArquivoVazio
	}

	texto, err := decodificar(data)
	if err != nil {
		return nil, err
	}

	arquivo := &domain.ArquivoSped{
		Estatisticas: domain.Estatisticas{ContagemPorTipo: make(map[string]int)},
	}
	produtos := make(map[string]produtoCadastro)
	participantes := make(map[string]string)
	var docAtual *documentoAtual
	var temCabecalho bool
	var totalDeclarado = -1

	scanner := bufio.NewScanner(strings.NewReader(texto))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	numLinha := 0
	for scanner.Scan() {
		numLinha++
		linha := strings.TrimSpace(scanner.Text())
		if linha == "" {
			continue
		}
		if !strings.HasPrefix(linha, "|") || !strings.HasSuffix(linha, "|") {
			arquivo.Estatisticas.Avisos = append(arquivo.Estatisticas.Avisos,
				fmt.Sprintf("linha %d ignorada: delimitadores ausentes", numLinha))
			continue
		}

		campos := strings.Split(linha, "|")
		if len(campos) < 3 {
			arquivo.Estatisticas.Avisos = append(arquivo.Estatisticas.Avisos,
				fmt.Sprintf("linha %d ignorada: registro sem campos", numLinha))
			continue
		}
		tipo := campos[1]
		arquivo.Estatisticas.TotalRegistros++
		arquivo.Estatisticas.ContagemPorTipo[tipo]++

		if min, conhecido := camposMinimos[tipo]; conhecido && len(campos) < min {
			arquivo.Estatisticas.Avisos = append(arquivo.Estatisticas.Avisos,
				fmt.Sprintf("linha %d ignorada: registro %s com %d campos (mínimo %d)", numLinha, tipo, len(campos), min))
			if tipo == "C100" {
				// Sem documento vigente os C170 seguintes ficam órfãos, em
				// vez de se anexarem ao documento anterior.
				docAtual = nil
			}
			continue
		}

		switch tipo {
		case "0000":
			arquivo.DadosEmpresa = domain.DadosEmpresa{
				RazaoSocial: strings.TrimSpace(campos[6]),
				Cnpj:        strings.TrimSpace(campos[7]),
				Uf:          strings.ToUpper(strings.TrimSpace(campos[9])),
			}
			arquivo.PeriodoApuracao = formatarPeriodo(campos[4], campos[5])
			temCabecalho = arquivo.DadosEmpresa.Cnpj != "" && arquivo.DadosEmpresa.Uf != ""

		case "0150":
			// A UF do participante vem do código IBGE de município.
			cod := strings.TrimSpace(campos[2])
			if cod == "" {
				continue
			}
			if uf := domain.UfPorCodigoMunicipio(strings.TrimSpace(campos[8])); uf != "" {
				participantes[cod] = uf
			}

		case "0200":
			cod := strings.TrimSpace(campos[2])
			if cod == "" {
				continue
			}
			produtos[cod] = produtoCadastro{
				descricao: strings.TrimSpace(campos[3]),
				ncm:       strings.TrimSpace(campos[8]),
			}

		case "C100":
			// IND_OPER 0 = entrada. Saídas não geram DIFAL, mas os C170
			// delas continuam contados nas estatísticas.
			docAtual = &documentoAtual{
				numDoc:   strings.TrimSpace(campos[8]),
				chaveNfe: strings.TrimSpace(campos[9]),
				ufOrigem: participantes[strings.TrimSpace(campos[4])],
				entrada:  strings.TrimSpace(campos[2]) == "0",
			}

		case "C170":
			if docAtual == nil {
				arquivo.Estatisticas.Avisos = append(arquivo.Estatisticas.Avisos,
					fmt.Sprintf("linha %d ignorada: C170 sem C100 anterior", numLinha))
				continue
			}
			if !docAtual.entrada {
				continue
			}
			cfop := strings.TrimSpace(campos[11])
			destinacao, sujeito := domain.DestinacaoPorCfop(cfop)
			if !sujeito {
				continue
			}
			item := domain.DifalItem{
				CodItem:    strings.TrimSpace(campos[3]),
				DescrCompl: strings.TrimSpace(campos[4]),
				Cfop:       cfop,
				CstIcms:    strings.TrimSpace(campos[10]),
				Destinacao: destinacao,
				VlItem:     parseValor(campos[7]),
				UfOrigem:   docAtual.ufOrigem,
				NumDoc:     docAtual.numDoc,
				ChaveNfe:   docAtual.chaveNfe,
			}
			item.BaseCalculoDifal = item.VlItem
			item.BeneficiosFiscais = beneficioPorCst(item.CstIcms)
			arquivo.ItensDifal = append(arquivo.ItensDifal, item)

		case "9999":
			if n, err := strconv.Atoi(strings.TrimSpace(campos[2])); err == nil {
				totalDeclarado = n
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("erro ao ler SPED: %w", err)
	}

	if !temCabecalho {
		return nil, domain.ErrCabecalhoAusente
	}

	resolverDescricoes(arquivo.ItensDifal, produtos)
	arquivo.Estatisticas.TiposRegistros = len(arquivo.Estatisticas.ContagemPorTipo)

	if totalDeclarado >= 0 && totalDeclarado != arquivo.Estatisticas.TotalRegistros {
		arquivo.Estatisticas.Avisos = append(arquivo.Estatisticas.Avisos,
			fmt.Sprintf("totalizador 9999 declara %d registros, mas o arquivo contém %d", totalDeclarado, arquivo.Estatisticas.TotalRegistros))
	}

	return arquivo, nil
}

// decodificar aceita UTF-8 válido e cai para ISO-8859-1, codificação comum em
// exportações legadas.
func decodificar(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCodificacao, err)
	}
	return string(decoded), nil
}

// resolverDescricoes associa a descrição cadastral do 0200 pelo código do
// item, com fallback para a complementar quando ausente ou sentinela.
func resolverDescricoes(itens []domain.DifalItem, produtos map[string]produtoCadastro) {
	for i := range itens {
		cad, ok := produtos[itens[i].CodItem]
		if !ok {
			continue
		}
		itens[i].Ncm = cad.ncm
		if cad.descricao != "" && !strings.EqualFold(cad.descricao, descricaoNaoCadastrado) {
			itens[i].DescricaoCadastral = cad.descricao
		}
	}
}

// beneficioPorCst sinaliza benefício declarado no próprio documento: CSTs 20 e
// 70 indicam redução de base de cálculo.
func beneficioPorCst(cst string) *domain.BeneficioDocumento {
	if len(cst) < 2 {
		return nil
	}
	switch cst[len(cst)-2:] {
	case "20", "70":
		return &domain.BeneficioDocumento{
			TemBeneficio: true,
			Descricao:    fmt.Sprintf("Redução de base de cálculo (CST %s)", cst),
		}
	}
	return nil
}

func parseValor(campo string) float64 {
	valorStr := strings.Replace(strings.TrimSpace(campo), ",", ".", 1)
	valor, _ := strconv.ParseFloat(valorStr, 64)
	return valor
}

// formatarPeriodo converte datas ddmmaaaa do 0000 em "dd/mm/aaaa a dd/mm/aaaa".
func formatarPeriodo(dtIni, dtFin string) string {
	return fmt.Sprintf("%s a %s", formatarData(dtIni), formatarData(dtFin))
}

func formatarData(d string) string {
	d = strings.TrimSpace(d)
	if len(d) != 8 {
		return d
	}
	return fmt.Sprintf("%s/%s/%s", d[0:2], d[2:4], d[4:8])
}
