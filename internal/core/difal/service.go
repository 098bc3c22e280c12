// internal/core/difal/service.go
package difal

import (
	"fmt"
	"math"
	"strings"

	"github.com/LuisEduardoPedra/apuraDifal/internal/domain"
)

// Service calcula o DIFAL de cada item e agrega os totalizadores. O cálculo é
// puro: mesma entrada produz resultados e memória de cálculo idênticos, e o
// serviço nunca altera itens ou configuração do chamador.
type Service interface {
	CalcularTodos(itens []domain.DifalItem, config domain.ConfigCalculo) []domain.ResultadoCalculo
	ObterTotalizadores(resultados []domain.ResultadoCalculo, config domain.ConfigCalculo) domain.Totalizadores
}

type service struct{}

func NewService() Service {
	return &service{}
}

// CalcularTodos processa o lote inteiro. Erros são por item e nunca abortam o
// lote: uma linha com UF irresolvível zera os campos monetários daquele item
// e o restante segue normalmente.
func (s *service) CalcularTodos(itens []domain.DifalItem, config domain.ConfigCalculo) []domain.ResultadoCalculo {
	resultados := make([]domain.ResultadoCalculo, 0, len(itens))
	for _, item := range itens {
		resultados = append(resultados, s.calcularItem(item, config))
	}
	return resultados
}

func (s *service) calcularItem(item domain.DifalItem, config domain.ConfigCalculo) domain.ResultadoCalculo {
	res := domain.ResultadoCalculo{
		Item:       item,
		Beneficio:  "Nenhum",
		StatusCode: domain.StatusCalculado,
	}
	registrar := func(formato string, args ...interface{}) {
		res.MemoriaCalculo = append(res.MemoriaCalculo, fmt.Sprintf(formato, args...))
	}

	registrar("Item %s (%s): CFOP %s, CST %s, destinação %s, valor R$ %s",
		item.CodItem, item.Descricao(), item.Cfop, item.CstIcms, item.Destinacao, formatarValor(item.VlItem))

	ben := ResolverBeneficio(item.CodItem, config.BeneficiosGlobais, config.BeneficiosPorItem)
	switch ben.Origem {
	case OrigemIndividual:
		registrar("Benefício configurado individualmente para o item: %s", RotuloBeneficio(ben.Config.Tipo))
	case OrigemGlobal:
		registrar("Benefício global aplicado ao item: %s", RotuloBeneficio(ben.Config.Tipo))
	}
	if ben.Origem != "" && !ben.Aplicavel && ben.Config.Tipo != domain.BeneficioNenhum {
		registrar("Benefício com campos obrigatórios ausentes; calculado sem efeito até ser completado")
	}
	if ben.Aplicavel {
		res.Beneficio = RotuloBeneficio(ben.Config.Tipo)
	}

	metodologia := config.Metodologia
	if metodologia == "" {
		metodologia = domain.MetodologiaAuto
	}
	if metodologia == domain.MetodologiaAuto {
		metodologia = metodologiaAutomatica(item)
		registrar("Metodologia determinada automaticamente: %s", metodologia)
	} else {
		registrar("Metodologia forçada pelo usuário: %s", metodologia)
	}
	res.Metodologia = metodologia

	if ben.Aplicavel && ben.Config.Tipo == domain.BeneficioIsencao {
		res.StatusCode = domain.StatusIsento
		registrar("Item isento de DIFAL por benefício fiscal; base, DIFAL, FCP e total zerados")
		return res
	}

	ufOrigem := config.UfOrigem
	if item.UfOrigem != "" {
		ufOrigem = item.UfOrigem
		registrar("UF de origem obtida do participante do documento: %s", ufOrigem)
	}

	aliqInter, err := domain.AliquotaInterestadual(ufOrigem, config.UfDestino)
	if err != nil {
		return resultadoErro(res, err)
	}
	aliqInterna, err := domain.AliquotaInterna(config.UfDestino)
	if err != nil {
		return resultadoErro(res, err)
	}
	aliqFcpEstatutaria, err := domain.AliquotaFcp(config.UfDestino)
	if err != nil {
		return resultadoErro(res, err)
	}

	res.AliqOrigem = aliqInter
	res.AliqDestino = aliqInterna
	registrar("Alíquota interestadual %s para %s: %s%%; alíquota interna de %s: %s%%",
		ufOrigem, config.UfDestino, formatarValor(aliqInter), config.UfDestino, formatarValor(aliqInterna))

	if ben.Aplicavel {
		switch ben.Config.Tipo {
		case domain.BeneficioReducaoAliquotaOrigem:
			res.AliqOrigem = *ben.Config.AliqOrigemEfetiva
			registrar("Alíquota de origem reduzida por benefício: %s%% (estatutária %s%%)",
				formatarValor(res.AliqOrigem), formatarValor(aliqInter))
		case domain.BeneficioReducaoAliquotaDestino:
			res.AliqDestino = *ben.Config.AliqDestinoEfetiva
			registrar("Alíquota de destino reduzida por benefício: %s%% (estatutária %s%%)",
				formatarValor(res.AliqDestino), formatarValor(aliqInterna))
		}
	}

	base := round(item.VlItem*config.PercentualDestinatario/100, 2)
	registrar("Base de cálculo: R$ %s × %s%% (participação do destinatário) = R$ %s",
		formatarValor(item.VlItem), formatarValor(config.PercentualDestinatario), formatarValor(base))

	switch metodologia {
	case domain.MetodologiaBaseUnica:
		carga := res.AliqDestino
		if ben.Aplicavel && ben.Config.Tipo == domain.BeneficioReducaoBase {
			carga = *ben.Config.CargaEfetivaDesejada
			registrar("Carga efetiva de destino definida pelo benefício: %s%%", formatarValor(carga))
		} else if item.BeneficiosFiscais != nil && item.BeneficiosFiscais.TemBeneficio && item.BeneficiosFiscais.PercentualReducao > 0 {
			carga = round(carga*(100-item.BeneficiosFiscais.PercentualReducao)/100, 2)
			registrar("Carga efetiva reduzida pelo benefício do documento (%s%% de redução): %s%%",
				formatarValor(item.BeneficiosFiscais.PercentualReducao), formatarValor(carga))
		}
		res.Difal = round(base*(carga-res.AliqOrigem)/100, 2)
		registrar("DIFAL (base única) = R$ %s × (%s%% - %s%%) = R$ %s",
			formatarValor(base), formatarValor(carga), formatarValor(res.AliqOrigem), formatarValor(res.Difal))

	default: // base dupla, o caso geral
		if ben.Aplicavel && ben.Config.Tipo == domain.BeneficioReducaoBase {
			carga := *ben.Config.CargaEfetivaDesejada
			reduzida := round(base*carga/res.AliqDestino, 2)
			if reduzida > base {
				reduzida = base
				registrar("Base reduzida limitada à base integral")
			}
			registrar("Base reduzida para carga efetiva de %s%%: R$ %s × %s / %s = R$ %s",
				formatarValor(carga), formatarValor(base), formatarValor(carga),
				formatarValor(res.AliqDestino), formatarValor(reduzida))
			base = reduzida
		}
		res.Difal = round(base*(res.AliqDestino-res.AliqOrigem)/100, 2)
		registrar("DIFAL = R$ %s × (%s%% - %s%%) = R$ %s",
			formatarValor(base), formatarValor(res.AliqDestino), formatarValor(res.AliqOrigem), formatarValor(res.Difal))
	}

	if res.Difal < 0 {
		res.Difal = 0
		registrar("Diferencial negativo; DIFAL ajustado para R$ 0,00")
	}

	res.AliqFcp = aliqFcpEstatutaria
	if ben.Config.FcpManual != nil {
		res.AliqFcp = *ben.Config.FcpManual
		registrar("Percentual de FCP informado manualmente: %s%% (estatutário %s%%)",
			formatarValor(res.AliqFcp), formatarValor(aliqFcpEstatutaria))
	}
	res.Fcp = round(base*res.AliqFcp/100, 2)
	registrar("FCP = R$ %s × %s%% = R$ %s",
		formatarValor(base), formatarValor(res.AliqFcp), formatarValor(res.Fcp))
	if res.Fcp < 0 {
		res.Fcp = 0
		registrar("FCP negativo; ajustado para R$ 0,00")
	}

	res.Base = base
	res.TotalRecolher = round(res.Difal+res.Fcp, 2)
	registrar("Total a recolher = DIFAL R$ %s + FCP R$ %s = R$ %s",
		formatarValor(res.Difal), formatarValor(res.Fcp), formatarValor(res.TotalRecolher))

	return res
}

// ObterTotalizadores é uma dobra pura sobre os resultados. A economia por
// benefício recalcula a apuração de cada item beneficiado sem benefício algum
// (segunda passada), em vez de acumular incrementalmente, para não haver
// divergência entre baseline e resultado.
func (s *service) ObterTotalizadores(resultados []domain.ResultadoCalculo, config domain.ConfigCalculo) domain.Totalizadores {
	tot := domain.Totalizadores{TotalItens: len(resultados)}

	semBeneficios := config
	semBeneficios.BeneficiosGlobais = nil
	semBeneficios.BeneficiosPorItem = nil

	for _, r := range resultados {
		if r.Erro {
			continue
		}
		tot.TotalBase += r.Base
		tot.TotalDifal += r.Difal
		tot.TotalFcp += r.Fcp
		tot.TotalRecolher += r.TotalRecolher
		if r.Difal > 0 {
			tot.ItensComDifal++
		}
		if r.Beneficio != "Nenhum" {
			tot.ItensComBeneficio++
			baseline := s.calcularItem(r.Item, semBeneficios)
			if !baseline.Erro {
				tot.EconomiaTotal += baseline.TotalRecolher - r.TotalRecolher
			}
		}
	}

	tot.TotalBase = round(tot.TotalBase, 2)
	tot.TotalDifal = round(tot.TotalDifal, 2)
	tot.TotalFcp = round(tot.TotalFcp, 2)
	tot.TotalRecolher = round(tot.TotalRecolher, 2)
	tot.EconomiaTotal = round(tot.EconomiaTotal, 2)
	return tot
}

// metodologiaAutomatica decide pela base única quando o próprio documento
// indica tratamento de carga combinada (CST de redução de base ou benefício
// declarado no documento); caso contrário vale a base dupla.
func metodologiaAutomatica(item domain.DifalItem) domain.Metodologia {
	if cstComReducao(item.CstIcms) {
		return domain.MetodologiaBaseUnica
	}
	if item.BeneficiosFiscais != nil && item.BeneficiosFiscais.TemBeneficio {
		return domain.MetodologiaBaseUnica
	}
	return domain.MetodologiaBaseDupla
}

func cstComReducao(cst string) bool {
	if len(cst) < 2 {
		return false
	}
	switch cst[len(cst)-2:] {
	case "20", "70":
		return true
	}
	return false
}

// resultadoErro anota o erro diretamente na cópia que será devolvida; um
// append via closure do chamador se perderia, pois o cabeçalho do slice já
// foi copiado para cá.
func resultadoErro(res domain.ResultadoCalculo, err error) domain.ResultadoCalculo {
	res.Erro = true
	res.StatusCode = domain.StatusErro
	res.MensagemErro = err.Error()
	res.Base = 0
	res.AliqOrigem = 0
	res.AliqDestino = 0
	res.AliqFcp = 0
	res.Difal = 0
	res.Fcp = 0
	res.TotalRecolher = 0
	res.MemoriaCalculo = append(res.MemoriaCalculo, fmt.Sprintf("Erro: %v", err))
	return res
}

func round(val float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(val*pow) / pow
}

func formatarValor(val float64) string {
	return strings.Replace(fmt.Sprintf("%.2f", val), ".", ",", 1)
}
