// internal/core/difal/beneficios.go
package difal

import "github.com/LuisEduardoPedra/apuraDifal/internal/domain"

// Origem da configuração de benefício resolvida para um item.
const (
	OrigemIndividual = "individual"
	OrigemGlobal     = "global"
)

// BeneficioResolvido é o benefício efetivo de um item após a precedência
// individual > global. Aplicavel fica falso quando a configuração existe mas
// está incompleta: ela permanece editável, porém sem efeito no cálculo.
type BeneficioResolvido struct {
	Config    domain.BeneficioConfig
	Origem    string
	Aplicavel bool
}

// ResolverBeneficio aplica a precedência: se o item possui configuração
// individual com qualquer campo de benefício preenchido, ela vale por inteiro
// e a global é ignorada para esse item. Campos individuais e globais nunca são
// combinados.
func ResolverBeneficio(codItem string, global *domain.BeneficioConfig, porItem map[string]domain.BeneficioConfig) BeneficioResolvido {
	if cfg, ok := porItem[codItem]; ok && configurado(cfg) {
		return BeneficioResolvido{Config: cfg, Origem: OrigemIndividual, Aplicavel: beneficioCompleto(cfg)}
	}
	if global != nil && configurado(*global) {
		return BeneficioResolvido{Config: *global, Origem: OrigemGlobal, Aplicavel: beneficioCompleto(*global)}
	}
	return BeneficioResolvido{}
}

func configurado(cfg domain.BeneficioConfig) bool {
	return cfg.Tipo != domain.BeneficioNenhum || cfg.FcpManual != nil
}

// beneficioCompleto valida os campos obrigatórios de cada variante.
func beneficioCompleto(cfg domain.BeneficioConfig) bool {
	switch cfg.Tipo {
	case domain.BeneficioReducaoBase:
		return cfg.CargaEfetivaDesejada != nil && *cfg.CargaEfetivaDesejada > 0
	case domain.BeneficioReducaoAliquotaOrigem:
		return cfg.AliqOrigemEfetiva != nil && *cfg.AliqOrigemEfetiva >= 0
	case domain.BeneficioReducaoAliquotaDestino:
		return cfg.AliqDestinoEfetiva != nil && *cfg.AliqDestinoEfetiva >= 0
	case domain.BeneficioIsencao:
		return true
	case domain.BeneficioNenhum:
		return false
	}
	return false
}

// RotuloBeneficio é o nome exibível de cada variante.
func RotuloBeneficio(tipo domain.TipoBeneficio) string {
	switch tipo {
	case domain.BeneficioReducaoBase:
		return "Redução de base de cálculo"
	case domain.BeneficioReducaoAliquotaOrigem:
		return "Redução de alíquota de origem"
	case domain.BeneficioReducaoAliquotaDestino:
		return "Redução de alíquota de destino"
	case domain.BeneficioIsencao:
		return "Isenção"
	}
	return "Nenhum"
}
