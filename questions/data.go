package questions

// specialtyQuestions are the specialty exam questions, in exam order
var specialtyQuestions = []string{
	"Business Model Canvas – Definition",
	"What is the concept of breakthrough innovation and disruptive innovation?",
	"Present the concept of value innovation and a four-action strategy for building a new market space",
	"Present the concept of the knowledge illusion or the leader's dilemma in forecasting. concepts.",
	"Networks in strategic management. Explain the notion and types of inter- organizational networks.",
	"The Black swan theory and its characteristics. Give examples of phenomena that can be classified as Black swans.",
	"The Lean Startup method. What innovative tools for creating new businesses do you know?",
	"What is a competitive advantage? When it makes sense to focus the company's activity in a selected segment?",
	"Explain the long tail strategy and give examples of companies that use the long tail in their strategic activities.",
	"What is the sharing economy? How does it relate to the decline of capitalism?",
	"Explain the notion of the \"problem of the second half of the chessboard\" and how it is related to the organization's business strategy.",
	"What is the structure of inequality and global wealth inequality in the 21st century?",
	"What is the iterative process of creating a business concept?",
	"Characterize and explain the principles of Agile operations as a method of managing an organization.",
	"What is the Continuous Improvement process and Lean Process Development?",
}

// directionQuestions are the field-of-study exam questions, in exam order
var directionQuestions = []string{
	"Basic Functions of Management:",
	"Globalization in World Markets:",
	"Structure and characteristics of managerial competencies. Give characteristics of 3 structures of your choice.",
	"Entrepreneurship – the notion, its characteristics and conditions for its development in modern economies.",
	"Competitiveness, competitive potential and competitive advantage – notions and determinants.",
	"Business ethics – manifestation of unethical practices and preventing measures.",
	"IT systems and their use in organizational management.",
	"Market environment and its role for an organization.",
	"Factors influencing consumer's behavior in the market. Discuss one of them.",
	"Notions, components and use of the SWOT and the TOWS analysis.",
	"Give one traditional and one contemporary definition of marketing. Give examples.",
	"List organizational methods and techniques. Describe a selected method and technique.",
	"What are the components of a marketing plan? Discuss shortly the components and their purpose.",
	"Pricing strategies and their determining factors.",
	"Product and its life cycle in the market – description of its stages and its implications for acompany.",
	"List the tools of integrated marketing communication.",
	"Classification of costs in accounting.",
	"Functions and structure of a business plan.",
	"The difference between vision, mission and strategy of an organization. Give examples of vision and mission.",
	"The essence of enterprise strategy and types of strategies.",
	"The meaning and essence of project management in contemporary organizations.",
	"Functions and tools of human resource management (HRM).",
	"Basic motivation theories and instruments.",
	"Classical and contemporary models of organizational structures. Give examples.",
	"The basic management styles used by managers.",
	"Please discuss the principles of functioning of market economy",
	"Please discuss the basic directions of the Balcerowicz Plan and its social and economic impact.",
	"The impact of taxes, government grants and loans on operating a business.",
	"The effects of introducing protective customs tariffs and minimum and maximum prices.",
	"Please indicate short- and long-term effects of inflation.",
}
