// internal/api/handlers/beneficios_handler.go
package handlers

import (
	"net/http"

	"github.com/LuisEduardoPedra/apuraDifal/internal/api/responses"
	"github.com/LuisEduardoPedra/apuraDifal/internal/core/converter"
	"github.com/LuisEduardoPedra/apuraDifal/internal/core/sped"
	"github.com/gin-gonic/gin"
)

// BeneficiosHandler lida com a importação de planos de benefícios fiscais.
type BeneficiosHandler struct {
	converter converter.Service
	sped      sped.Service
}

// NewBeneficiosHandler cria um novo handler de importação de benefícios.
func NewBeneficiosHandler(converterService converter.Service, spedService sped.Service) *BeneficiosHandler {
	return &BeneficiosHandler{
		converter: converterService,
		sped:      spedService,
	}
}

// HandleImportPlano recebe a planilha de benefícios ('planoFile', em .csv,
// .xls ou .xlsx) e o arquivo SPED ('spedFile') cujos itens servem de alvo do
// casamento, devolvendo o mapa de configuração por item.
func (h *BeneficiosHandler) HandleImportPlano(c *gin.Context) {
	planoFileHeader, err := c.FormFile("planoFile")
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Arquivo de plano de benefícios não encontrado ou inválido")
		return
	}
	spedFileHeader, err := c.FormFile("spedFile")
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Arquivo SPED não encontrado ou inválido")
		return
	}

	planoFile, err := planoFileHeader.Open()
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Não foi possível abrir o arquivo de plano de benefícios")
		return
	}
	defer planoFile.Close()

	spedFile, err := spedFileHeader.Open()
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Não foi possível abrir o arquivo SPED")
		return
	}
	defer spedFile.Close()

	arquivo, err := h.sped.ParseFile(spedFile)
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Falha ao processar arquivo SPED", err.Error())
		return
	}

	configs, avisos, err := h.converter.ProcessPlanoBeneficios(planoFile, planoFileHeader.Filename, arquivo.ItensDifal)
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Erro ao importar plano de benefícios", err.Error())
		return
	}

	responses.Success(c, gin.H{
		"beneficiosPorItem": configs,
		"avisos":            avisos,
	}, "Plano de benefícios importado com sucesso")
}
