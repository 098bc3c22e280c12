// internal/domain/models.go
package domain

import "errors"

// Erros fatais do parser. Tudo que não aborta o parse vira aviso em Estatisticas.
var (
	ErrArquivoVazio     = errors.New("arquivo SPED vazio")
	ErrCabecalhoAusente = errors.New("registro 0000 ausente ou inválido")
	ErrCodificacao      = errors.New("não foi possível decodificar o arquivo (UTF-8 ou ISO-8859-1)")
)

// Destinacao classifica o emprego da mercadoria adquirida.
type Destinacao string

const (
	DestinacaoUsoConsumo       Destinacao = "uso-consumo"
	DestinacaoAtivoImobilizado Destinacao = "ativo-imobilizado"
)

// DadosEmpresa vem do registro 0000 e identifica o declarante.
type DadosEmpresa struct {
	RazaoSocial string `json:"razaoSocial"`
	Cnpj        string `json:"cnpj"`
	Uf          string `json:"uf"`
}

// BeneficioDocumento é o benefício declarado no próprio documento fiscal
// (via CST), independente da configuração feita pelo usuário.
type BeneficioDocumento struct {
	TemBeneficio      bool    `json:"temBeneficio"`
	Descricao         string  `json:"descricao,omitempty"`
	PercentualReducao float64 `json:"percentualReducao,omitempty"`
}

// DifalItem é um item C170 cujo CFOP indica aquisição interestadual para
// uso/consumo ou ativo imobilizado. Imutável após o parse.
type DifalItem struct {
	CodItem            string              `json:"codItem"`
	Ncm                string              `json:"ncm,omitempty"`
	DescricaoCadastral string              `json:"descricaoCadastral,omitempty"`
	DescrCompl         string              `json:"descrCompl,omitempty"`
	Cfop               string              `json:"cfop"`
	CstIcms            string              `json:"cstIcms"`
	Destinacao         Destinacao          `json:"destinacao"`
	VlItem             float64             `json:"vlItem"`
	BaseCalculoDifal   float64             `json:"baseCalculoDifal"`
	BeneficiosFiscais  *BeneficioDocumento `json:"beneficiosFiscais,omitempty"`
	// UfOrigem vem do participante (0150) do documento, quando o registro
	// existe; vazio quando o arquivo não permite inferir a origem.
	UfOrigem string `json:"ufOrigem,omitempty"`
	NumDoc   string `json:"numDoc,omitempty"`
	ChaveNfe string `json:"chaveNfe,omitempty"`
}

// Descricao resolve a descrição exibível: cadastral (0200) quando houver,
// complementar (C170) como fallback.
func (i DifalItem) Descricao() string {
	if i.DescricaoCadastral != "" {
		return i.DescricaoCadastral
	}
	return i.DescrCompl
}

// Estatisticas são consumidas apenas para exibição, nunca pelo motor de cálculo.
type Estatisticas struct {
	TotalRegistros  int            `json:"totalRegistros"`
	TiposRegistros  int            `json:"tiposRegistros"`
	ContagemPorTipo map[string]int `json:"contagemPorTipo"`
	Avisos          []string       `json:"avisos,omitempty"`
}

// ArquivoSped é o resultado completo de um parse. Um novo parse produz um
// snapshot independente; o anterior nunca é alterado.
type ArquivoSped struct {
	DadosEmpresa    DadosEmpresa `json:"dadosEmpresa"`
	PeriodoApuracao string       `json:"periodoApuracao"`
	ItensDifal      []DifalItem  `json:"itensDifal"`
	Estatisticas    Estatisticas `json:"estatisticas"`
}

// TipoBeneficio é o conjunto fechado de benefícios fiscais configuráveis.
type TipoBeneficio string

const (
	BeneficioNenhum                 TipoBeneficio = ""
	BeneficioReducaoBase            TipoBeneficio = "reducao-base"
	BeneficioReducaoAliquotaOrigem  TipoBeneficio = "reducao-aliquota-origem"
	BeneficioReducaoAliquotaDestino TipoBeneficio = "reducao-aliquota-destino"
	BeneficioIsencao                TipoBeneficio = "isencao"
)

// BeneficioConfig é a configuração de benefício de um item (ou a global).
// Campos de valor são ponteiros para distinguir "não informado" de zero:
// um benefício com campo obrigatório ausente permanece editável, mas é
// resolvido sem efeito até ser completado.
type BeneficioConfig struct {
	Tipo                 TipoBeneficio `json:"tipo"`
	CargaEfetivaDesejada *float64      `json:"cargaEfetivaDesejada,omitempty"`
	AliqOrigemEfetiva    *float64      `json:"aliqOrigemEfetiva,omitempty"`
	AliqDestinoEfetiva   *float64      `json:"aliqDestinoEfetiva,omitempty"`
	FcpManual            *float64      `json:"fcpManual,omitempty"`
}

// Metodologia de cálculo do diferencial.
type Metodologia string

const (
	MetodologiaAuto      Metodologia = "auto"
	MetodologiaBaseUnica Metodologia = "base-unica"
	MetodologiaBaseDupla Metodologia = "base-dupla"
)

// ConfigCalculo é o snapshot imutável de configuração de uma rodada de cálculo.
type ConfigCalculo struct {
	UfOrigem               string                     `json:"ufOrigem"`
	UfDestino              string                     `json:"ufDestino"`
	Metodologia            Metodologia                `json:"metodologia"`
	PercentualDestinatario float64                    `json:"percentualDestinatario"`
	BeneficiosGlobais      *BeneficioConfig           `json:"beneficiosGlobais,omitempty"`
	BeneficiosPorItem      map[string]BeneficioConfig `json:"beneficiosPorItem,omitempty"`
}

// StatusCode define um tipo para os códigos de status numéricos do cálculo.
// O frontend usa esses números para determinar como exibir o resultado.
type StatusCode int

const (
	StatusCalculado StatusCode = 1 // DIFAL apurado normalmente.
	StatusIsento    StatusCode = 2 // Item isento por benefício fiscal.
	StatusErro      StatusCode = 3 // Falha de cálculo; valores zerados.
)

// ResultadoCalculo é o resultado de um item. MemoriaCalculo é uma trilha de
// auditoria append-only: mesma entrada, mesma sequência de passos.
type ResultadoCalculo struct {
	Item           DifalItem   `json:"item"`
	Base           float64     `json:"base"`
	AliqOrigem     float64     `json:"aliqOrigem"`
	AliqDestino    float64     `json:"aliqDestino"`
	AliqFcp        float64     `json:"aliqFcp"`
	Difal          float64     `json:"difal"`
	Fcp            float64     `json:"fcp"`
	TotalRecolher  float64     `json:"totalRecolher"`
	Metodologia    Metodologia `json:"metodologia"`
	Beneficio      string      `json:"beneficio"`
	StatusCode     StatusCode  `json:"statusCode"`
	Erro           bool        `json:"erro"`
	MensagemErro   string      `json:"mensagemErro,omitempty"`
	MemoriaCalculo []string    `json:"memoriaCalculo"`
}

// Totalizadores são sempre recalculados por soma sobre os resultados vigentes,
// nunca persistidos em separado.
type Totalizadores struct {
	TotalItens        int     `json:"totalItens"`
	TotalBase         float64 `json:"totalBase"`
	TotalDifal        float64 `json:"totalDifal"`
	TotalFcp          float64 `json:"totalFcp"`
	TotalRecolher     float64 `json:"totalRecolher"`
	ItensComDifal     int     `json:"itensComDifal"`
	ItensComBeneficio int     `json:"itensComBeneficio"`
	EconomiaTotal     float64 `json:"economiaTotal"`
}
