// internal/api/handlers/difal_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/LuisEduardoPedra/apuraDifal/internal/api/responses"
	"github.com/LuisEduardoPedra/apuraDifal/internal/core/difal"
	"github.com/LuisEduardoPedra/apuraDifal/internal/core/sped"
	"github.com/LuisEduardoPedra/apuraDifal/internal/domain"
	"github.com/gin-gonic/gin"
)

// DifalHandler lida com as requisições de parse do SPED e apuração de DIFAL.
type DifalHandler struct {
	sped  sped.Service
	difal difal.Service
}

// NewDifalHandler cria um novo handler de apuração.
func NewDifalHandler(spedService sped.Service, difalService difal.Service) *DifalHandler {
	return &DifalHandler{
		sped:  spedService,
		difal: difalService,
	}
}

// resultadoApuracao é o contrato devolvido pela rota de cálculo.
type resultadoApuracao struct {
	Arquivo       *domain.ArquivoSped       `json:"arquivo"`
	Resultados    []domain.ResultadoCalculo `json:"resultados"`
	Totalizadores domain.Totalizadores      `json:"totalizadores"`
}

// HandleParse processa o arquivo SPED enviado e devolve cabeçalho, itens
// candidatos a DIFAL e estatísticas.
func (h *DifalHandler) HandleParse(c *gin.Context) {
	arquivo, ok := h.parseSpedUpload(c)
	if !ok {
		return
	}
	responses.Success(c, arquivo, "Arquivo SPED processado com sucesso")
}

// HandleCalculate processa o arquivo SPED e calcula o DIFAL de todos os itens
// com a configuração recebida no campo de formulário 'config' (JSON).
func (h *DifalHandler) HandleCalculate(c *gin.Context) {
	arquivo, ok := h.parseSpedUpload(c)
	if !ok {
		return
	}

	// Valor padrão antes do unmarshal: assim um percentual 0 explícito no JSON
	// é respeitado, em vez de confundido com campo ausente.
	config := domain.ConfigCalculo{PercentualDestinatario: 100}
	if configStr := c.PostForm("config"); configStr != "" {
		if err := json.Unmarshal([]byte(configStr), &config); err != nil {
			responses.Error(c, http.StatusBadRequest, "Configuração de cálculo inválida", err.Error())
			return
		}
	}
	if config.Metodologia == "" {
		config.Metodologia = domain.MetodologiaAuto
	}
	if config.PercentualDestinatario < 0 || config.PercentualDestinatario > 100 {
		responses.Error(c, http.StatusBadRequest, "Configuração de cálculo inválida",
			"percentualDestinatario deve estar entre 0 e 100")
		return
	}
	if config.UfDestino == "" {
		// Na entrada, o adquirente declarante é o destino.
		config.UfDestino = arquivo.DadosEmpresa.Uf
	}
	// UF de origem ausente não é fatal: itens com participante identificado
	// usam a UF do documento e os demais resultam em erro por item.

	resultados := h.difal.CalcularTodos(arquivo.ItensDifal, config)
	totalizadores := h.difal.ObterTotalizadores(resultados, config)

	responses.Success(c, resultadoApuracao{
		Arquivo:       arquivo,
		Resultados:    resultados,
		Totalizadores: totalizadores,
	}, "Apuração de DIFAL concluída com sucesso")
}

// parseSpedUpload abre o arquivo 'spedFile' do formulário e executa o parse,
// respondendo o erro adequado quando falhar.
func (h *DifalHandler) parseSpedUpload(c *gin.Context) (*domain.ArquivoSped, bool) {
	spedFileHeader, err := c.FormFile("spedFile")
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Arquivo SPED não encontrado ou inválido")
		return nil, false
	}
	spedFile, err := spedFileHeader.Open()
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Não foi possível abrir o arquivo SPED")
		return nil, false
	}
	defer spedFile.Close()

	arquivo, err := h.sped.ParseFile(spedFile)
	if err != nil {
		if errors.Is(err, domain.ErrArquivoVazio) || errors.Is(err, domain.ErrCabecalhoAusente) || errors.Is(err, domain.ErrCodificacao) {
			responses.Error(c, http.StatusBadRequest, "Falha ao processar arquivo SPED", err.Error())
			return nil, false
		}
		responses.Error(c, http.StatusInternalServerError, "Erro ao processar arquivo SPED", err.Error())
		return nil, false
	}
	return arquivo, true
}
