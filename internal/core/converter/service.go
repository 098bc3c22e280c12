// internal/core/converter/service.go
package converter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/LuisEduardoPedra/apuraDifal/internal/domain"
	"github.com/schollz/closestmatch"
	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Service importa planilhas de plano de benefícios fiscais (.csv, .xls ou
// .xlsx) e as resolve contra os itens de um arquivo SPED já processado.
//
// Layout esperado, separado por ponto e vírgula:
//
//	identificador;tipo;valor;fcp
//
// O identificador pode ser o código do item ou sua descrição (casada por
// aproximação quando não houver correspondência exata). Linhas sem valor
// obrigatório geram configuração incompleta, mantida para edição posterior.
type Service interface {
	ProcessPlanoBeneficios(planoFile io.Reader, planoFilename string, itens []domain.DifalItem) (map[string]domain.BeneficioConfig, []string, error)
}

type service struct{}

// NewService cria uma nova instância do serviço de importação de benefícios.
func NewService() Service {
	return &service{}
}

// Funções utilitárias compartilhadas
var nonAlphanumericRegex = regexp.MustCompile(`[^A-Z0-9 ]+`)
var whitespaceRegex = regexp.MustCompile(`\s+`)

func (svc *service) normalizeText(str string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}))
	result, _, _ := transform.String(t, str)
	result = strings.ToUpper(result)
	result = nonAlphanumericRegex.ReplaceAllString(result, " ")
	result = whitespaceRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

func (svc *service) parseBRLNumber(val string) (float64, error) {
	s := strings.TrimSpace(val)
	if s == "" {
		return 0.0, nil
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}

func (svc *service) convertXLSXtoCSV(file io.Reader) (io.Reader, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)
	writer.Comma = ';'

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		for _, row := range rows {
			if err := writer.Write(row); err != nil {
				return nil, err
			}
		}
	}

	writer.Flush()
	return &buffer, writer.Error()
}

func (svc *service) convertXLStoCSV(file io.Reader) (io.Reader, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	reader := bytes.NewReader(data)

	workbook, err := xls.OpenReader(reader)
	if err != nil {
		if _, errX := excelize.OpenReader(bytes.NewReader(data)); errX == nil {
			return svc.convertXLSXtoCSV(bytes.NewReader(data))
		}
		return nil, err
	}

	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)
	writer.Comma = ';'

	for _, sheet := range workbook.GetSheets() {
		for _, row := range sheet.GetRows() {
			var csvRow []string
			for _, cell := range row.GetCols() {
				csvRow = append(csvRow, cell.GetString())
			}
			if err := writer.Write(csvRow); err != nil {
				return nil, err
			}
		}
	}

	writer.Flush()
	return &buffer, writer.Error()
}

func (svc *service) ProcessPlanoBeneficios(planoFile io.Reader, planoFilename string, itens []domain.DifalItem) (map[string]domain.BeneficioConfig, []string, error) {
	var csvReader io.Reader
	ext := strings.ToLower(filepath.Ext(planoFilename))

	switch ext {
	case ".xlsx":
		csvData, err := svc.convertXLSXtoCSV(planoFile)
		if err != nil {
			return nil, nil, fmt.Errorf("erro ao converter .xlsx para .csv: %w", err)
		}
		csvReader = csvData
	case ".xls":
		csvData, err := svc.convertXLStoCSV(planoFile)
		if err != nil {
			return nil, nil, fmt.Errorf("erro ao converter .xls para .csv: %w", err)
		}
		csvReader = csvData
	case ".csv":
		// Planilhas .csv desses sistemas costumam vir em Latin-1; as
		// convertidas de Excel acima já estão em UTF-8.
		decoder := charmap.ISO8859_1.NewDecoder()
		csvReader = transform.NewReader(planoFile, decoder)
	default:
		return nil, nil, fmt.Errorf("formato de plano de benefícios não suportado: %s", ext)
	}

	reader := csv.NewReader(csvReader)
	reader.Comma = ';'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("erro ao ler plano de benefícios: %w", err)
	}

	codigos, descricoes, chaves := svc.indexarItens(itens)

	configs := make(map[string]domain.BeneficioConfig)
	var avisos []string

	for i, record := range records {
		if len(record) < 2 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		// Cabeçalho opcional na primeira linha.
		if i == 0 && svc.normalizeText(record[1]) == "TIPO" {
			continue
		}

		identificador := strings.TrimSpace(record[0])
		tipo, ok := svc.normalizarTipo(record[1])
		if !ok {
			avisos = append(avisos, fmt.Sprintf("linha %d ignorada: tipo de benefício desconhecido %q", i+1, strings.TrimSpace(record[1])))
			continue
		}

		codItem, aviso := svc.resolverItem(identificador, codigos, descricoes, chaves)
		if codItem == "" {
			avisos = append(avisos, fmt.Sprintf("linha %d ignorada: nenhum item corresponde a %q", i+1, identificador))
			continue
		}
		if aviso != "" {
			avisos = append(avisos, fmt.Sprintf("linha %d: %s", i+1, aviso))
		}

		cfg := domain.BeneficioConfig{Tipo: tipo}
		if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
			valor, err := svc.parseBRLNumber(record[2])
			if err != nil {
				avisos = append(avisos, fmt.Sprintf("linha %d: valor %q inválido; benefício mantido como incompleto", i+1, strings.TrimSpace(record[2])))
			} else {
				switch tipo {
				case domain.BeneficioReducaoBase:
					cfg.CargaEfetivaDesejada = &valor
				case domain.BeneficioReducaoAliquotaOrigem:
					cfg.AliqOrigemEfetiva = &valor
				case domain.BeneficioReducaoAliquotaDestino:
					cfg.AliqDestinoEfetiva = &valor
				}
			}
		}
		if len(record) > 3 && strings.TrimSpace(record[3]) != "" {
			fcp, err := svc.parseBRLNumber(record[3])
			if err != nil {
				avisos = append(avisos, fmt.Sprintf("linha %d: FCP %q inválido; ignorado", i+1, strings.TrimSpace(record[3])))
			} else {
				cfg.FcpManual = &fcp
			}
		}

		if _, existe := configs[codItem]; existe {
			avisos = append(avisos, fmt.Sprintf("linha %d: configuração anterior do item %s sobrescrita", i+1, codItem))
		}
		configs[codItem] = cfg
	}

	return configs, avisos, nil
}

// indexarItens prepara os índices de casamento: código exato, descrição
// normalizada e a lista ordenada de chaves para a busca por aproximação.
func (svc *service) indexarItens(itens []domain.DifalItem) (map[string]bool, map[string]string, []string) {
	codigos := make(map[string]bool)
	descricoes := make(map[string]string)
	var chaves []string

	for _, item := range itens {
		codigos[item.CodItem] = true
		key := svc.normalizeText(item.Descricao())
		if key == "" {
			continue
		}
		if _, ok := descricoes[key]; !ok {
			descricoes[key] = item.CodItem
			chaves = append(chaves, key)
		}
	}
	sort.Strings(chaves)
	return codigos, descricoes, chaves
}

// resolverItem casa o identificador da linha com um item do SPED: código
// exato, depois descrição exata normalizada, por fim aproximação.
func (svc *service) resolverItem(identificador string, codigos map[string]bool, descricoes map[string]string, chaves []string) (string, string) {
	if codigos[identificador] {
		return identificador, ""
	}

	key := svc.normalizeText(identificador)
	if key == "" {
		return "", ""
	}
	if cod, ok := descricoes[key]; ok {
		return cod, ""
	}

	if len(chaves) > 0 {
		cm := closestmatch.New(chaves, []int{3, 4})
		match := cm.Closest(key)
		if match != "" {
			if cod, ok := descricoes[match]; ok {
				return cod, fmt.Sprintf("item associado por aproximação (%q para o item %s)", identificador, cod)
			}
		}
	}

	return "", ""
}

// normalizarTipo aceita os nomes canônicos com hífen e variantes com acento
// ou espaço vindas de planilhas preenchidas à mão.
func (svc *service) normalizarTipo(tipoStr string) (domain.TipoBeneficio, bool) {
	n := svc.normalizeText(tipoStr)
	switch {
	case n == "":
		return domain.BeneficioNenhum, false
	case strings.Contains(n, "ISEN"):
		return domain.BeneficioIsencao, true
	case strings.Contains(n, "ORIGEM"):
		return domain.BeneficioReducaoAliquotaOrigem, true
	case strings.Contains(n, "DESTINO"):
		return domain.BeneficioReducaoAliquotaDestino, true
	case strings.Contains(n, "BASE"):
		return domain.BeneficioReducaoBase, true
	}
	return domain.BeneficioNenhum, false
}
