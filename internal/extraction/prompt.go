package extraction

const systemPrompt = `Analise a mensagem de WhatsApp a seguir, que contém um pedido, e extraia:
1. Nome do cliente (se não for informado, use "Cliente Desconhecido").
2. Itens pedidos: nome, quantidade e unidade de medida ("kg", "peça", "unidade", "grama", etc.).
3. Endereço de entrega (null se não for informado).
4. Observações adicionais (null se não houver).

Responda APENAS com um objeto JSON válido, sem explicações e sem markdown, nesta estrutura:
{
  "customerName": "Nome do cliente",
  "items": [
    { "name": "Nome do item", "quantity": 2, "medida": "kg" }
  ],
  "address": "Endereço completo ou null",
  "notes": "Observações ou null"
}`

// Prompt is the chat pair sent to the model.
type Prompt struct {
	System string
	User   string
}

func BuildPrompt(message string) Prompt {
	return Prompt{
		System: systemPrompt,
		User:   "Mensagem: " + message,
	}
}
