package kb

// catalog holds short summaries of the most common Normas Regulamentadoras,
// keyed by sanitized code. Used as a fallback when no full text file exists
// for a requested norm.
var catalog = map[string]string{
	"nr-01": "NR-01 - Disposições Gerais e Gerenciamento de Riscos Ocupacionais. " +
		"Estabelece o Programa de Gerenciamento de Riscos (PGR), exigindo inventário " +
		"de riscos ocupacionais e plano de ação. O empregador deve identificar perigos, " +
		"avaliar riscos, classificá-los e implementar medidas de prevenção, além de " +
		"prover informação e treinamento aos trabalhadores.",
	"nr-06": "NR-06 - Equipamento de Proteção Individual (EPI). Obriga o empregador a " +
		"fornecer gratuitamente EPI adequado ao risco, com Certificado de Aprovação (CA) " +
		"válido, exigir seu uso, orientar e treinar o trabalhador sobre uso, guarda e " +
		"conservação, e registrar o fornecimento.",
	"nr-07": "NR-07 - Programa de Controle Médico de Saúde Ocupacional (PCMSO). Exige " +
		"exames médicos admissional, periódico, de retorno ao trabalho, de mudança de " +
		"riscos ocupacionais e demissional, com emissão de Atestado de Saúde Ocupacional " +
		"(ASO) e relatório analítico anual.",
	"nr-09": "NR-09 - Avaliação e Controle das Exposições Ocupacionais a Agentes " +
		"Físicos, Químicos e Biológicos. Estabelece requisitos para avaliação das " +
		"exposições e adoção de medidas de prevenção, subsidiando o inventário de " +
		"riscos do PGR, incluindo monitoramento e limites de tolerância.",
	"nr-15": "NR-15 - Atividades e Operações Insalubres. Define os agentes e limites de " +
		"tolerância que caracterizam insalubridade (ruído, calor, agentes químicos e " +
		"biológicos, entre outros) e os graus de adicional correspondentes, exigindo " +
		"laudo técnico de avaliação.",
	"nr-17": "NR-17 - Ergonomia. Estabelece parâmetros de adaptação das condições de " +
		"trabalho às características psicofisiológicas dos trabalhadores: levantamento " +
		"e transporte de cargas, mobiliário, equipamentos, condições ambientais e " +
		"organização do trabalho, com Avaliação Ergonômica Preliminar (AEP).",
	"nr-35": "NR-35 - Trabalho em Altura. Aplica-se a atividades acima de 2 metros do " +
		"nível inferior com risco de queda. Exige análise de risco, permissão de " +
		"trabalho, capacitação com treinamento teórico e prático, sistemas de proteção " +
		"contra quedas e procedimentos de emergência e resgate.",
}
